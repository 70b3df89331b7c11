// Package tracker maintains live views of a memepad's open positions:
// one snapshot pass over chain state, then trade-event driven updates.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"memepad-engine/internal/broadcast"
	"memepad-engine/internal/domain"
	"memepad-engine/internal/feed"
	"memepad-engine/internal/market"
	"memepad-engine/internal/observability"
	"memepad-engine/internal/storage"
)

// ChainReader reads wallet and token state from the chain.
type ChainReader interface {
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
	GetWalletTokenHolding(ctx context.Context, wallet, mint string) (float64, error)
}

// CoinInfoReader fetches coin metadata.
type CoinInfoReader interface {
	GetCoinInfo(ctx context.Context, mint string) (*market.CoinInfo, error)
}

// TradeFeed is the slice of the feed client the tracker drives.
type TradeFeed interface {
	SubscribeTokenTrades(owner string, tokens []string, h feed.TradeHandler)
	UnsubscribeTokenTrades(owner string)
}

// Broadcaster pushes updates to UI clients.
type Broadcaster interface {
	Broadcast(v any)
}

// lamportsPerSol is the lamport denomination of one SOL.
const lamportsPerSol = 1e9

// supplyScale converts raw total supply to UI units (6 decimals).
const supplyScale = 1e6

// positionState is the live view of one open position.
type positionState struct {
	wallet        string
	mint          string
	symbol        string
	held          float64
	entryCapSol   float64
	walletBalance float64
	totalSupply   float64
}

// session is the tracking state of one memepad.
type session struct {
	positions []*positionState
}

// Tracker owns one tracking session per memepad. Sessions are
// process-local; a restart starts tracking from a fresh snapshot.
type Tracker struct {
	chain    domain.Chain
	memePads storage.MemePadStore
	ticks    storage.TradeTickStore
	reader   ChainReader
	coins    CoinInfoReader
	feed     TradeFeed
	hub      Broadcaster
	metrics  *observability.Metrics
	log      *logrus.Entry

	mu       sync.Mutex
	sessions map[string]*session
}

// NewTracker creates a tracker. metrics may be nil.
func NewTracker(
	chain domain.Chain,
	memePads storage.MemePadStore,
	ticks storage.TradeTickStore,
	reader ChainReader,
	coins CoinInfoReader,
	tradeFeed TradeFeed,
	hub Broadcaster,
	metrics *observability.Metrics,
	log *logrus.Entry,
) *Tracker {
	return &Tracker{
		chain:    chain,
		memePads: memePads,
		ticks:    ticks,
		reader:   reader,
		coins:    coins,
		feed:     tradeFeed,
		hub:      hub,
		metrics:  metrics,
		log:      log,
		sessions: make(map[string]*session),
	}
}

// StartTracking snapshots a memepad's positions, broadcasts their
// state, and subscribes to trades on the surviving tokens.
func (t *Tracker) StartTracking(ctx context.Context, memePadName string) error {
	t.mu.Lock()
	if _, exists := t.sessions[memePadName]; exists {
		t.mu.Unlock()
		return fmt.Errorf("memepad %s is already tracked", memePadName)
	}
	t.sessions[memePadName] = &session{}
	t.mu.Unlock()

	if err := t.refresh(ctx, memePadName); err != nil {
		t.mu.Lock()
		delete(t.sessions, memePadName)
		t.mu.Unlock()
		return err
	}
	return nil
}

// RefreshPositions re-snapshots a tracked memepad and re-subscribes
// its token set. No-op for untracked memepads; called after a new buy.
func (t *Tracker) RefreshPositions(ctx context.Context, memePadName string) {
	t.mu.Lock()
	_, exists := t.sessions[memePadName]
	t.mu.Unlock()
	if !exists {
		return
	}
	if err := t.refresh(ctx, memePadName); err != nil {
		t.log.WithError(err).WithField("memepad", memePadName).Warn("position refresh failed")
	}
}

// StopTracking drops the session and its trade subscription.
func (t *Tracker) StopTracking(memePadName string) error {
	t.mu.Lock()
	_, exists := t.sessions[memePadName]
	delete(t.sessions, memePadName)
	t.mu.Unlock()
	if !exists {
		return fmt.Errorf("memepad %s is not tracked", memePadName)
	}

	t.feed.UnsubscribeTokenTrades(memePadName)
	t.updateTrackedGauge()
	return nil
}

// refresh runs one snapshot pass and installs the trade subscription.
// Chain and metadata lookups are cached per pass, so a memepad whose
// positions share a wallet or token costs one call each.
func (t *Tracker) refresh(ctx context.Context, memePadName string) error {
	m, err := t.memePads.Get(ctx, t.chain, memePadName)
	if err != nil {
		return fmt.Errorf("load memepad %s: %w", memePadName, err)
	}

	balances := make(map[string]float64)
	infos := make(map[string]*market.CoinInfo)
	fresh := &session{}

	for _, p := range m.Positions {
		state, keep := t.resolvePosition(ctx, memePadName, p, balances, infos)
		if !keep {
			continue
		}
		fresh.positions = append(fresh.positions, state)
		t.broadcastState(memePadName, state, state.entryCapSol, marketCapOf(infos[p.TokenAddress]))
	}

	t.mu.Lock()
	t.sessions[memePadName] = fresh
	t.mu.Unlock()

	tokens := make([]string, 0, len(fresh.positions))
	seen := make(map[string]struct{})
	for _, p := range fresh.positions {
		if _, ok := seen[p.mint]; ok {
			continue
		}
		seen[p.mint] = struct{}{}
		tokens = append(tokens, p.mint)
	}
	t.feed.SubscribeTokenTrades(memePadName, tokens, func(ev domain.TradeEvent) {
		t.onTrade(memePadName, ev)
	})

	if t.metrics != nil {
		t.metrics.TrackingPasses.Inc()
	}
	t.updateTrackedGauge()
	return nil
}

// resolvePosition loads one position's live state. A position whose
// token account is gone or whose coin is unknown is pruned from the
// memepad; a transient metadata failure keeps the position but skips
// it for this pass.
func (t *Tracker) resolvePosition(
	ctx context.Context,
	memePadName string,
	p domain.Position,
	balances map[string]float64,
	infos map[string]*market.CoinInfo,
) (*positionState, bool) {
	log := t.log.WithFields(logrus.Fields{
		"memepad": memePadName,
		"wallet":  p.Wallet,
		"token":   p.TokenAddress,
	})

	held, err := t.reader.GetWalletTokenHolding(ctx, p.Wallet, p.TokenAddress)
	if err != nil {
		log.WithError(err).Info("pruning unresolvable position")
		t.prune(ctx, memePadName, p)
		return nil, false
	}

	info, ok := infos[p.TokenAddress]
	if !ok {
		info, err = t.coins.GetCoinInfo(ctx, p.TokenAddress)
		if err != nil {
			log.WithError(err).Warn("coin info unavailable, keeping position")
			return nil, false
		}
		infos[p.TokenAddress] = info
	}
	if info == nil || info.TotalSupply == 0 {
		log.Info("pruning position with unknown coin")
		t.prune(ctx, memePadName, p)
		return nil, false
	}

	balance, ok := balances[p.Wallet]
	if !ok {
		lamports, err := t.reader.GetBalance(ctx, p.Wallet)
		if err != nil {
			log.WithError(err).Warn("wallet balance unavailable")
		}
		balance = float64(lamports) / lamportsPerSol
		balances[p.Wallet] = balance
	}

	return &positionState{
		wallet:        p.Wallet,
		mint:          p.TokenAddress,
		symbol:        p.TokenSymbol,
		held:          held,
		entryCapSol:   p.BoughtMarketCapSol,
		walletBalance: balance,
		totalSupply:   info.TotalSupply,
	}, true
}

func (t *Tracker) prune(ctx context.Context, memePadName string, p domain.Position) {
	err := t.memePads.RemovePosition(ctx, t.chain, memePadName, p.Wallet, p.TokenAddress)
	if err != nil {
		t.log.WithError(err).Warn("remove pruned position")
		return
	}
	if t.metrics != nil {
		t.metrics.PositionsPruned.Inc()
	}
}

// onTrade updates held amounts and rebroadcasts position state for
// every position on the traded token. Runs on the feed's reader
// goroutine, in feed order.
func (t *Tracker) onTrade(memePadName string, ev domain.TradeEvent) {
	if t.metrics != nil {
		t.metrics.TradeEvents.WithLabelValues(string(ev.TxType)).Inc()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tick := &domain.TradeTick{
		Mint:         ev.Mint,
		Trader:       ev.TraderPublicKey,
		Side:         ev.TxType,
		TokenAmount:  ev.TokenAmount,
		MarketCapSol: ev.MarketCapSol,
		Timestamp:    time.Now().UnixMilli(),
	}
	if err := t.ticks.Insert(ctx, tick); err != nil {
		t.log.WithError(err).Debug("archive trade tick")
	}

	t.mu.Lock()
	s, exists := t.sessions[memePadName]
	if !exists {
		t.mu.Unlock()
		return
	}
	var affected []*positionState
	for _, p := range s.positions {
		if p.mint != ev.Mint {
			continue
		}
		if ev.TxType == domain.TradeSideSell && ev.TraderPublicKey == p.wallet {
			p.held -= ev.TokenAmount
			if p.held < 0 {
				p.held = 0
			}
		}
		affected = append(affected, p)
	}
	t.mu.Unlock()

	for _, p := range affected {
		t.broadcastState(memePadName, p, p.entryCapSol, ev.MarketCapSol)
	}
}

// broadcastState pushes one position's live state. The percent
// difference compares current and entry market caps over the same held
// amount, so it reduces to the cap ratio.
func (t *Tracker) broadcastState(memePadName string, p *positionState, entryCapSol, currentCapSol float64) {
	uiSupply := p.totalSupply / supplyScale
	if uiSupply == 0 {
		return
	}
	price := currentCapSol / uiSupply

	percentDiff := 0.0
	if entryCapSol != 0 {
		entryPrice := entryCapSol / uiSupply
		entryValue := entryPrice * p.held
		currentValue := price * p.held
		if entryValue != 0 {
			percentDiff = (currentValue - entryValue) / entryValue * 100
		}
	}

	t.hub.Broadcast(broadcast.TokenActivity{
		Type:              broadcast.TypeTokenActivity,
		MemePad:           memePadName,
		Wallet:            p.wallet,
		WalletBalance:     p.walletBalance,
		TokenAddress:      p.mint,
		TokenSymbol:       p.symbol,
		TokenAmount:       p.held,
		TokenPrice:        price,
		TokenMarketCap:    currentCapSol,
		PercentDifference: percentDiff,
	})
}

func marketCapOf(info *market.CoinInfo) float64 {
	if info == nil {
		return 0
	}
	return info.MarketCapSol
}

func (t *Tracker) updateTrackedGauge() {
	if t.metrics == nil {
		return
	}
	t.mu.Lock()
	total := 0
	seen := make(map[string]struct{})
	for _, s := range t.sessions {
		for _, p := range s.positions {
			if _, ok := seen[p.mint]; !ok {
				seen[p.mint] = struct{}{}
				total++
			}
		}
	}
	t.mu.Unlock()
	t.metrics.TrackedTokens.Set(float64(total))
}
