// Package engine turns token launch events into buy orders for active
// memepads.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"memepad-engine/internal/dispatch"
	"memepad-engine/internal/domain"
	"memepad-engine/internal/feed"
	"memepad-engine/internal/observability"
	"memepad-engine/internal/rules"
	"memepad-engine/internal/storage"
	"memepad-engine/internal/wallets"
)

// handleTimeout bounds the work done for a single launch event.
const handleTimeout = 30 * time.Second

// TokenFeed is the slice of the feed client the engine drives.
type TokenFeed interface {
	SubscribeNewTokens(h feed.NewTokenHandler)
	UnsubscribeNewTokens()
}

// Dispatcher submits buy orders.
type Dispatcher interface {
	PriorityFee(ctx context.Context) (float64, error)
	SubmitBuy(ctx context.Context, wallet *domain.Wallet, mint string, amountSol, slippage, priorityFee float64) (string, error)
}

// BalanceReader reads wallet balances for percentage-based sizing.
type BalanceReader interface {
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
}

// Options tunes engine behavior.
type Options struct {
	// EnforceWalletCap skips wallets whose purchase counter has reached
	// the memepad's BuyingPerWallet. Off by default: the counter is
	// bookkeeping only and rotation alone spreads the buys.
	EnforceWalletCap bool
}

// Engine subscribes to the launch feed while at least one memepad is
// purchasing and evaluates every launch against all active memepads,
// sequentially and in name order.
type Engine struct {
	chain       domain.Chain
	memePads    storage.MemePadStore
	walletStore storage.WalletStore
	history     storage.HistoryStore
	allocator   *wallets.Allocator
	dispatcher  Dispatcher
	feed        TokenFeed
	balances    BalanceReader
	metrics     *observability.Metrics
	log         *logrus.Entry
	opts        Options

	mu         sync.Mutex
	active     map[string]struct{}
	onPosition func(memePadName string)
}

// NewEngine creates an acquisition engine for one chain. metrics may
// be nil.
func NewEngine(
	chain domain.Chain,
	memePads storage.MemePadStore,
	walletStore storage.WalletStore,
	history storage.HistoryStore,
	allocator *wallets.Allocator,
	dispatcher Dispatcher,
	tokenFeed TokenFeed,
	balances BalanceReader,
	metrics *observability.Metrics,
	log *logrus.Entry,
	opts Options,
) *Engine {
	return &Engine{
		chain:       chain,
		memePads:    memePads,
		walletStore: walletStore,
		history:     history,
		allocator:   allocator,
		dispatcher:  dispatcher,
		feed:        tokenFeed,
		balances:    balances,
		metrics:     metrics,
		log:         log,
		opts:        opts,
		active:      make(map[string]struct{}),
	}
}

// SetPositionListener installs a callback invoked after every landed
// buy, with the owning memepad's name. Used by the position tracker to
// refresh its trade subscriptions.
func (e *Engine) SetPositionListener(f func(memePadName string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onPosition = f
}

// StartPurchase activates a memepad. The first active memepad opens
// the launch subscription.
func (e *Engine) StartPurchase(ctx context.Context, name string) error {
	m, err := e.memePads.Get(ctx, e.chain, name)
	if err != nil {
		return fmt.Errorf("load memepad %s: %w", name, err)
	}

	e.mu.Lock()
	_, alreadyActive := e.active[name]
	e.mu.Unlock()
	if alreadyActive || m.Settings.PurchaseActive {
		return fmt.Errorf("memepad %s is already purchasing", name)
	}

	if len(m.Settings.NamesToBuy) != len(m.Settings.HardNames) {
		return fmt.Errorf("memepad %s has %d names but %d match flags",
			name, len(m.Settings.NamesToBuy), len(m.Settings.HardNames))
	}

	if err := e.walletStore.ResetPurchases(ctx, e.chain, m.Settings.WalletsListName); err != nil {
		return fmt.Errorf("reset purchase counters: %w", err)
	}
	e.allocator.Reset(name)

	if err := e.memePads.SetPurchaseActive(ctx, e.chain, name, true); err != nil {
		return fmt.Errorf("activate memepad: %w", err)
	}

	e.mu.Lock()
	e.active[name] = struct{}{}
	first := len(e.active) == 1
	count := len(e.active)
	e.mu.Unlock()

	if first {
		e.feed.SubscribeNewTokens(e.handleNewToken)
	}
	if e.metrics != nil {
		e.metrics.ActiveMemePads.Set(float64(count))
	}

	e.log.WithField("memepad", name).Info("purchasing started")
	return nil
}

// StopPurchase deactivates a memepad. The last active memepad closes
// the launch subscription.
func (e *Engine) StopPurchase(ctx context.Context, name string) error {
	e.mu.Lock()
	_, isActive := e.active[name]
	e.mu.Unlock()
	if !isActive {
		return fmt.Errorf("memepad %s is not purchasing", name)
	}

	if err := e.memePads.SetPurchaseActive(ctx, e.chain, name, false); err != nil {
		return fmt.Errorf("deactivate memepad: %w", err)
	}

	e.mu.Lock()
	delete(e.active, name)
	last := len(e.active) == 0
	count := len(e.active)
	e.mu.Unlock()

	if last {
		e.feed.UnsubscribeNewTokens()
	}
	if e.metrics != nil {
		e.metrics.ActiveMemePads.Set(float64(count))
	}

	e.log.WithField("memepad", name).Info("purchasing stopped")
	return nil
}

// handleNewToken evaluates one launch against every active memepad.
// Runs on the feed's reader goroutine, so campaigns are evaluated
// one launch at a time.
func (e *Engine) handleNewToken(ev domain.NewTokenEvent) {
	if e.metrics != nil {
		e.metrics.TokensSeen.Inc()
	}
	if ev.Name == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	pads, err := e.memePads.ListActive(ctx, e.chain)
	if err != nil {
		e.log.WithError(err).Error("list active memepads")
		return
	}
	sort.Slice(pads, func(i, j int) bool { return pads[i].Name < pads[j].Name })

	for _, pad := range pads {
		e.tryBuy(ctx, pad, ev)
	}
}

// tryBuy attempts one buy for one memepad. Every failure short of
// broken local state is a missed trade: log and move on, never
// advancing the rotation cursor.
func (e *Engine) tryBuy(ctx context.Context, pad *domain.MemePad, ev domain.NewTokenEvent) {
	log := e.log.WithFields(logrus.Fields{
		"memepad": pad.Name,
		"token":   ev.Name,
		"mint":    ev.Mint,
	})

	wallet, err := e.allocator.Next(ctx, pad.Name, pad.Settings.WalletsListName)
	if err != nil {
		log.WithError(err).Debug("no wallet available")
		e.miss("no_wallet")
		return
	}

	if e.opts.EnforceWalletCap && pad.Settings.BuyingPerWallet > 0 &&
		wallet.Purchases >= pad.Settings.BuyingPerWallet {
		log.WithField("wallet", wallet.Address).Debug("wallet purchase cap reached")
		e.miss("wallet_cap")
		return
	}

	if !rules.Matches(ev.Name, pad.Rules()) {
		return
	}
	if e.metrics != nil {
		e.metrics.RuleMatches.Inc()
	}

	priorityFee, err := e.dispatcher.PriorityFee(ctx)
	if err != nil {
		log.WithError(err).Warn("priority fee unavailable, skipping buy")
		e.miss("priority_fee")
		return
	}

	var lamports uint64
	if pad.Settings.BuyingType == domain.BuyingTypePercentage {
		lamports, err = e.balances.GetBalance(ctx, wallet.Address)
		if err != nil {
			log.WithError(err).Warn("balance unavailable, skipping buy")
			e.miss("balance")
			return
		}
	}
	amount, err := dispatch.AmountForSettings(pad.Settings, lamports)
	if err != nil {
		log.WithError(err).Warn("cannot size buy")
		e.miss("sizing")
		return
	}

	slippage := pad.Settings.Slippage
	if slippage == 0 {
		slippage = domain.DefaultSlippage
	}

	signature, err := e.dispatcher.SubmitBuy(ctx, wallet, ev.Mint, amount, slippage, priorityFee)
	if err != nil {
		log.WithError(err).Error("buy dispatch failed")
		e.miss("local")
		return
	}
	if signature == "" {
		log.Debug("buy did not land")
		e.miss("relay")
		return
	}

	if err := e.walletStore.IncrementPurchases(ctx, e.chain, wallet.Address); err != nil {
		log.WithError(err).Error("increment purchase counter")
	}
	e.allocator.Advance(pad.Name)

	position := domain.Position{
		Wallet:             wallet.Address,
		TokenAddress:       ev.Mint,
		TokenSymbol:        ev.Symbol,
		BoughtMarketCapSol: ev.MarketCapSol,
	}
	if err := e.memePads.AppendPosition(ctx, e.chain, pad.Name, position); err != nil {
		log.WithError(err).Error("append position")
	}

	record := &domain.HistoryRecord{
		MemePadName:  pad.Name,
		Wallet:       wallet.Address,
		TokenAddress: ev.Mint,
		TokenSymbol:  ev.Symbol,
		Type:         domain.TradeTypeBuy,
		Signature:    signature,
	}
	if err := e.history.Insert(ctx, record); err != nil {
		log.WithError(err).Error("record buy history")
	}

	if e.metrics != nil {
		e.metrics.BuysDispatched.WithLabelValues(pad.Name).Inc()
	}
	log.WithFields(logrus.Fields{
		"wallet":    wallet.Address,
		"amount":    amount,
		"signature": signature,
	}).Info("buy dispatched")

	e.mu.Lock()
	listener := e.onPosition
	e.mu.Unlock()
	if listener != nil {
		listener(pad.Name)
	}
}

func (e *Engine) miss(reason string) {
	if e.metrics != nil {
		e.metrics.BuysMissed.WithLabelValues(reason).Inc()
	}
}
