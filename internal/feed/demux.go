package feed

import (
	"sync"

	"memepad-engine/internal/domain"
)

// NewTokenHandler consumes token-launch events.
type NewTokenHandler func(domain.NewTokenEvent)

// TradeHandler consumes trade events for subscribed tokens.
type TradeHandler func(domain.TradeEvent)

// Demux fans one physical feed subscription out to many owners. Trade
// events route by token address to every owner interested in that
// token, so one memepad re-subscribing never drops another's updates.
type Demux struct {
	mu        sync.RWMutex
	newToken  NewTokenHandler
	tradeSubs map[string]*tradeSub // keyed by owner (memepad name)
}

type tradeSub struct {
	tokens  map[string]struct{}
	handler TradeHandler
}

// NewDemux creates an empty demultiplexer.
func NewDemux() *Demux {
	return &Demux{
		tradeSubs: make(map[string]*tradeSub),
	}
}

// SetNewTokenHandler installs the token-launch handler.
func (d *Demux) SetNewTokenHandler(h NewTokenHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.newToken = h
}

// ClearNewTokenHandler removes the token-launch handler.
func (d *Demux) ClearNewTokenHandler() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.newToken = nil
}

// SetTradeHandler replaces an owner's tracked token set and handler.
func (d *Demux) SetTradeHandler(owner string, tokens []string, h TradeHandler) {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.tradeSubs[owner] = &tradeSub{tokens: set, handler: h}
}

// RemoveTradeHandler drops an owner's subscription and returns the
// tokens no other owner still wants, i.e. those safe to unsubscribe
// from the wire.
func (d *Demux) RemoveTradeHandler(owner string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	sub, exists := d.tradeSubs[owner]
	if !exists {
		return nil
	}
	delete(d.tradeSubs, owner)

	var released []string
	for token := range sub.tokens {
		wanted := false
		for _, other := range d.tradeSubs {
			if _, ok := other.tokens[token]; ok {
				wanted = true
				break
			}
		}
		if !wanted {
			released = append(released, token)
		}
	}
	return released
}

// TrackedTokens returns an owner's current token set.
func (d *Demux) TrackedTokens(owner string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sub, exists := d.tradeSubs[owner]
	if !exists {
		return nil
	}
	tokens := make([]string, 0, len(sub.tokens))
	for t := range sub.tokens {
		tokens = append(tokens, t)
	}
	return tokens
}

// DispatchNewToken delivers a launch event to the installed handler.
func (d *Demux) DispatchNewToken(ev domain.NewTokenEvent) {
	d.mu.RLock()
	h := d.newToken
	d.mu.RUnlock()

	if h != nil {
		h(ev)
	}
}

// DispatchTrade delivers a trade event to every owner tracking its
// token. Handlers run sequentially in the caller's goroutine so feed
// ordering is preserved.
func (d *Demux) DispatchTrade(ev domain.TradeEvent) {
	d.mu.RLock()
	var handlers []TradeHandler
	for _, sub := range d.tradeSubs {
		if _, ok := sub.tokens[ev.Mint]; ok {
			handlers = append(handlers, sub.handler)
		}
	}
	d.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
