package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/feed"
	"memepad-engine/internal/storage/memory"
	"memepad-engine/internal/wallets"
)

type fakeFeed struct {
	mu           sync.Mutex
	handler      feed.NewTokenHandler
	subscribes   int
	unsubscribes int
}

func (f *fakeFeed) SubscribeNewTokens(h feed.NewTokenHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
	f.subscribes++
}

func (f *fakeFeed) UnsubscribeNewTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = nil
	f.unsubscribes++
}

func (f *fakeFeed) emit(ev domain.NewTokenEvent) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

type buyCall struct {
	wallet string
	mint   string
	amount float64
}

type fakeDispatcher struct {
	feeErr    error
	signature string
	submitErr error
	buys      []buyCall
}

func (d *fakeDispatcher) PriorityFee(ctx context.Context) (float64, error) {
	if d.feeErr != nil {
		return 0, d.feeErr
	}
	return 0.001, nil
}

func (d *fakeDispatcher) SubmitBuy(ctx context.Context, wallet *domain.Wallet, mint string, amountSol, slippage, priorityFee float64) (string, error) {
	d.buys = append(d.buys, buyCall{wallet: wallet.Address, mint: mint, amount: amountSol})
	return d.signature, d.submitErr
}

type fakeBalances struct {
	lamports uint64
}

func (b *fakeBalances) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	return b.lamports, nil
}

type engineFixture struct {
	engine     *Engine
	feed       *fakeFeed
	dispatcher *fakeDispatcher
	memePads   *memory.MemePadStore
	walletSt   *memory.WalletStore
	history    *memory.HistoryStore
	allocator  *wallets.Allocator
}

func newFixture(t *testing.T, opts Options) *engineFixture {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	memePads := memory.NewMemePadStore()
	walletSt := memory.NewWalletStore()
	history := memory.NewHistoryStore()
	allocator := wallets.NewAllocator(walletSt, domain.ChainSolana)
	tokenFeed := &fakeFeed{}
	dispatcher := &fakeDispatcher{signature: "sig1"}

	eng := NewEngine(
		domain.ChainSolana,
		memePads, walletSt, history,
		allocator, dispatcher, tokenFeed,
		&fakeBalances{lamports: 2_000_000_000},
		nil, logrus.NewEntry(log), opts,
	)

	return &engineFixture{
		engine:     eng,
		feed:       tokenFeed,
		dispatcher: dispatcher,
		memePads:   memePads,
		walletSt:   walletSt,
		history:    history,
		allocator:  allocator,
	}
}

func (f *engineFixture) addMemePad(t *testing.T, name string, settings domain.Settings) {
	t.Helper()
	err := f.memePads.Create(context.Background(), &domain.MemePad{
		Name:     name,
		Chain:    domain.ChainSolana,
		Settings: settings,
	})
	if err != nil {
		t.Fatalf("create memepad: %v", err)
	}
}

func (f *engineFixture) addWallets(t *testing.T, group string, addresses ...string) {
	t.Helper()
	for _, addr := range addresses {
		err := f.walletSt.Insert(context.Background(), &domain.Wallet{
			Address:    addr,
			PrivateKey: "encrypted",
			Group:      group,
			Chain:      domain.ChainSolana,
		})
		if err != nil {
			t.Fatalf("insert wallet: %v", err)
		}
	}
}

func demoSettings() domain.Settings {
	return domain.Settings{
		WalletsListName: "main",
		NamesToBuy:      []string{"ToTheMoon"},
		HardNames:       []bool{false},
		BuyingPerWallet: 2,
		BuyingType:      domain.BuyingTypeRange,
		BuyingRange:     &domain.BuyingRange{Min: 0.1, Max: 0.1},
		Slippage:        30,
	}
}

func TestEngine_BuyOnMatchingLaunch(t *testing.T) {
	f := newFixture(t, Options{})
	f.addWallets(t, "main", "wallet1", "wallet2")
	f.addMemePad(t, "demo", demoSettings())
	ctx := context.Background()

	if err := f.engine.StartPurchase(ctx, "demo"); err != nil {
		t.Fatalf("StartPurchase failed: %v", err)
	}
	if f.feed.subscribes != 1 {
		t.Fatalf("subscribes = %d, want 1", f.feed.subscribes)
	}

	// An unrelated launch must not trigger a dispatch
	f.feed.emit(domain.NewTokenEvent{Name: "Unrelated", Symbol: "UNR", Mint: "mint0"})
	if len(f.dispatcher.buys) != 0 {
		t.Fatalf("dispatched %d buys for a non-matching launch", len(f.dispatcher.buys))
	}

	f.feed.emit(domain.NewTokenEvent{
		Name:         "ToTheMoon Inu",
		Symbol:       "MOON",
		Mint:         "mint1",
		MarketCapSol: 35,
	})

	if len(f.dispatcher.buys) != 1 {
		t.Fatalf("dispatched %d buys, want 1", len(f.dispatcher.buys))
	}
	buy := f.dispatcher.buys[0]
	if buy.wallet != "wallet1" || buy.mint != "mint1" || buy.amount != 0.1 {
		t.Errorf("unexpected buy: %+v", buy)
	}

	// Success advances the cursor and the purchase counter
	if f.allocator.Cursor("demo") != 1 {
		t.Errorf("cursor = %d, want 1", f.allocator.Cursor("demo"))
	}
	w, _ := f.walletSt.Get(ctx, domain.ChainSolana, "wallet1")
	if w.Purchases != 1 {
		t.Errorf("purchases = %d, want 1", w.Purchases)
	}

	m, _ := f.memePads.Get(ctx, domain.ChainSolana, "demo")
	if len(m.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(m.Positions))
	}
	p := m.Positions[0]
	if p.Wallet != "wallet1" || p.TokenAddress != "mint1" || p.BoughtMarketCapSol != 35 {
		t.Errorf("unexpected position: %+v", p)
	}

	// A pending history record awaits reconciliation
	records, _ := f.history.List(ctx, "demo", "")
	if len(records) != 1 {
		t.Fatalf("history records = %d, want 1", len(records))
	}
	r := records[0]
	if r.Type != domain.TradeTypeBuy || r.Amount != 0 || r.Signature != "sig1" {
		t.Errorf("unexpected history record: %+v", r)
	}
}

func TestEngine_MissedTradeAdvancesNothing(t *testing.T) {
	f := newFixture(t, Options{})
	f.addWallets(t, "main", "wallet1", "wallet2")
	f.addMemePad(t, "demo", demoSettings())
	f.dispatcher.signature = "" // relay declined
	ctx := context.Background()

	if err := f.engine.StartPurchase(ctx, "demo"); err != nil {
		t.Fatalf("StartPurchase failed: %v", err)
	}
	f.feed.emit(domain.NewTokenEvent{Name: "ToTheMoon", Mint: "mint1"})

	if len(f.dispatcher.buys) != 1 {
		t.Fatalf("dispatch attempts = %d, want 1", len(f.dispatcher.buys))
	}
	if f.allocator.Cursor("demo") != 0 {
		t.Errorf("cursor advanced on a missed trade")
	}
	w, _ := f.walletSt.Get(ctx, domain.ChainSolana, "wallet1")
	if w.Purchases != 0 {
		t.Errorf("purchase counter incremented on a missed trade")
	}
	m, _ := f.memePads.Get(ctx, domain.ChainSolana, "demo")
	if len(m.Positions) != 0 {
		t.Errorf("position recorded for a missed trade")
	}
	records, _ := f.history.List(ctx, "demo", "")
	if len(records) != 0 {
		t.Errorf("history recorded for a missed trade")
	}

	// The same wallet is retried on the next launch
	f.dispatcher.signature = "sig2"
	f.feed.emit(domain.NewTokenEvent{Name: "ToTheMoon", Mint: "mint2"})
	if f.dispatcher.buys[1].wallet != "wallet1" {
		t.Errorf("retry used %s, want wallet1", f.dispatcher.buys[1].wallet)
	}
}

func TestEngine_PriorityFeeFailureSkipsBuy(t *testing.T) {
	f := newFixture(t, Options{})
	f.addWallets(t, "main", "wallet1")
	f.addMemePad(t, "demo", demoSettings())
	f.dispatcher.feeErr = errors.New("tip floor down")

	if err := f.engine.StartPurchase(context.Background(), "demo"); err != nil {
		t.Fatalf("StartPurchase failed: %v", err)
	}
	f.feed.emit(domain.NewTokenEvent{Name: "ToTheMoon", Mint: "mint1"})

	if len(f.dispatcher.buys) != 0 {
		t.Errorf("dispatched without a priority fee")
	}
}

func TestEngine_SubscriptionRefcount(t *testing.T) {
	f := newFixture(t, Options{})
	f.addWallets(t, "main", "wallet1")
	first := demoSettings()
	second := demoSettings()
	second.NamesToBuy = []string{"Doge"}
	second.HardNames = []bool{true}
	f.addMemePad(t, "alpha", first)
	f.addMemePad(t, "beta", second)
	ctx := context.Background()

	if err := f.engine.StartPurchase(ctx, "alpha"); err != nil {
		t.Fatalf("start alpha: %v", err)
	}
	if err := f.engine.StartPurchase(ctx, "beta"); err != nil {
		t.Fatalf("start beta: %v", err)
	}
	if f.feed.subscribes != 1 {
		t.Errorf("subscribes = %d, want 1 for two active memepads", f.feed.subscribes)
	}

	if err := f.engine.StopPurchase(ctx, "alpha"); err != nil {
		t.Fatalf("stop alpha: %v", err)
	}
	if f.feed.unsubscribes != 0 {
		t.Errorf("unsubscribed while beta still active")
	}

	if err := f.engine.StopPurchase(ctx, "beta"); err != nil {
		t.Fatalf("stop beta: %v", err)
	}
	if f.feed.unsubscribes != 1 {
		t.Errorf("unsubscribes = %d, want 1 after last stop", f.feed.unsubscribes)
	}
}

func TestEngine_StartValidation(t *testing.T) {
	f := newFixture(t, Options{})
	f.addWallets(t, "main", "wallet1")
	f.addMemePad(t, "demo", demoSettings())
	ctx := context.Background()

	if err := f.engine.StartPurchase(ctx, "missing"); err == nil {
		t.Error("expected error for unknown memepad")
	}

	if err := f.engine.StartPurchase(ctx, "demo"); err != nil {
		t.Fatalf("StartPurchase failed: %v", err)
	}
	if err := f.engine.StartPurchase(ctx, "demo"); err == nil {
		t.Error("expected error for double start")
	}

	if err := f.engine.StopPurchase(ctx, "demo"); err != nil {
		t.Fatalf("StopPurchase failed: %v", err)
	}
	if err := f.engine.StopPurchase(ctx, "demo"); err == nil {
		t.Error("expected error for stopping an inactive memepad")
	}

	broken := demoSettings()
	broken.HardNames = nil
	f.addMemePad(t, "broken", broken)
	if err := f.engine.StartPurchase(ctx, "broken"); err == nil {
		t.Error("expected error for mismatched rule lists")
	}
}

func TestEngine_StartResetsCounters(t *testing.T) {
	f := newFixture(t, Options{})
	f.addWallets(t, "main", "wallet1")
	f.addMemePad(t, "demo", demoSettings())
	ctx := context.Background()

	f.walletSt.IncrementPurchases(ctx, domain.ChainSolana, "wallet1")
	f.allocator.Advance("demo")

	if err := f.engine.StartPurchase(ctx, "demo"); err != nil {
		t.Fatalf("StartPurchase failed: %v", err)
	}

	w, _ := f.walletSt.Get(ctx, domain.ChainSolana, "wallet1")
	if w.Purchases != 0 {
		t.Errorf("purchases = %d, want 0 after start", w.Purchases)
	}
	if f.allocator.Cursor("demo") != 0 {
		t.Errorf("cursor = %d, want 0 after start", f.allocator.Cursor("demo"))
	}
}

func TestEngine_WalletCapEnforcement(t *testing.T) {
	f := newFixture(t, Options{EnforceWalletCap: true})
	f.addWallets(t, "main", "wallet1")
	settings := demoSettings()
	settings.BuyingPerWallet = 1
	f.addMemePad(t, "demo", settings)
	ctx := context.Background()

	if err := f.engine.StartPurchase(ctx, "demo"); err != nil {
		t.Fatalf("StartPurchase failed: %v", err)
	}

	f.feed.emit(domain.NewTokenEvent{Name: "ToTheMoon", Mint: "mint1"})
	if len(f.dispatcher.buys) != 1 {
		t.Fatalf("first buy not dispatched")
	}

	// The single wallet is at its cap; rotation wraps back to it
	f.feed.emit(domain.NewTokenEvent{Name: "ToTheMoon", Mint: "mint2"})
	if len(f.dispatcher.buys) != 1 {
		t.Errorf("dispatched past the wallet cap")
	}
}

func TestEngine_PositionListener(t *testing.T) {
	f := newFixture(t, Options{})
	f.addWallets(t, "main", "wallet1")
	f.addMemePad(t, "demo", demoSettings())

	var notified []string
	f.engine.SetPositionListener(func(name string) { notified = append(notified, name) })

	if err := f.engine.StartPurchase(context.Background(), "demo"); err != nil {
		t.Fatalf("StartPurchase failed: %v", err)
	}
	f.feed.emit(domain.NewTokenEvent{Name: "ToTheMoon", Mint: "mint1"})

	if len(notified) != 1 || notified[0] != "demo" {
		t.Errorf("listener notified %v, want [demo]", notified)
	}
}
