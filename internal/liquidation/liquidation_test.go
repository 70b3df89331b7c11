package liquidation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage/memory"
)

type sellCall struct {
	wallet string
	mint   string
	amount float64
}

type fakeDispatcher struct {
	feeErr    error
	signature string
	sells     []sellCall
}

func (d *fakeDispatcher) PriorityFee(ctx context.Context) (float64, error) {
	if d.feeErr != nil {
		return 0, d.feeErr
	}
	return 0.001, nil
}

func (d *fakeDispatcher) SubmitSell(ctx context.Context, wallet *domain.Wallet, mint string, amountTokens, slippage, priorityFee float64) (string, error) {
	d.sells = append(d.sells, sellCall{wallet: wallet.Address, mint: mint, amount: amountTokens})
	return d.signature, nil
}

type fakeReader struct {
	holdings map[string]float64
}

func (r *fakeReader) GetWalletTokenHolding(ctx context.Context, wallet, mint string) (float64, error) {
	held, ok := r.holdings[wallet+"|"+mint]
	if !ok {
		return 0, fmt.Errorf("token account not found")
	}
	return held, nil
}

type fixture struct {
	executor   *Executor
	memePads   *memory.MemePadStore
	history    *memory.HistoryStore
	dispatcher *fakeDispatcher
	reader     *fakeReader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	f := &fixture{
		memePads:   memory.NewMemePadStore(),
		history:    memory.NewHistoryStore(),
		dispatcher: &fakeDispatcher{signature: "sellsig"},
		reader:     &fakeReader{holdings: make(map[string]float64)},
	}

	walletSt := memory.NewWalletStore()
	err := walletSt.Insert(context.Background(), &domain.Wallet{
		Address:    "wallet1",
		PrivateKey: "encrypted",
		Group:      "main",
		Chain:      domain.ChainSolana,
	})
	if err != nil {
		t.Fatalf("insert wallet: %v", err)
	}

	err = f.memePads.Create(context.Background(), &domain.MemePad{
		Name:  "demo",
		Chain: domain.ChainSolana,
		Positions: []domain.Position{
			{Wallet: "wallet1", TokenAddress: "mint1", TokenSymbol: "MCAT", BoughtMarketCapSol: 100},
		},
	})
	if err != nil {
		t.Fatalf("create memepad: %v", err)
	}

	f.executor = NewExecutor(
		domain.ChainSolana,
		f.memePads, walletSt, f.history,
		f.dispatcher, f.reader,
		nil, logrus.NewEntry(log),
	)
	return f
}

func TestExecutor_PartialSell(t *testing.T) {
	f := newFixture(t)
	f.reader.holdings["wallet1|mint1"] = 200
	f.history.Insert(context.Background(), &domain.HistoryRecord{
		MemePadName: "demo", Wallet: "wallet1", TokenAddress: "mint1",
		TokenSymbol: "MCAT", Type: domain.TradeTypeBuy, Signature: "buysig",
	})

	sig, err := f.executor.Sell(context.Background(), "demo", "wallet1", "mint1", 25, 30)
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	if sig != "sellsig" {
		t.Errorf("signature = %q", sig)
	}
	if len(f.dispatcher.sells) != 1 || f.dispatcher.sells[0].amount != 50 {
		t.Errorf("sold %+v, want 25 percent of 200 = 50", f.dispatcher.sells)
	}

	// Partial sell keeps the position
	m, _ := f.memePads.Get(context.Background(), domain.ChainSolana, "demo")
	if len(m.Positions) != 1 {
		t.Errorf("positions = %d, want the position kept", len(m.Positions))
	}

	// The sell record is resolved immediately and reuses the buy's symbol
	records, _ := f.history.List(context.Background(), "demo", domain.TradeTypeSell)
	if len(records) != 1 {
		t.Fatalf("sell records = %d, want 1", len(records))
	}
	r := records[0]
	if r.Amount != 50 || r.TokenSymbol != "MCAT" || r.Signature != "sellsig" {
		t.Errorf("unexpected sell record: %+v", r)
	}
}

func TestExecutor_FullSellRemovesPosition(t *testing.T) {
	f := newFixture(t)
	f.reader.holdings["wallet1|mint1"] = 80

	if _, err := f.executor.Sell(context.Background(), "demo", "wallet1", "mint1", 100, 30); err != nil {
		t.Fatalf("Sell failed: %v", err)
	}

	m, _ := f.memePads.Get(context.Background(), domain.ChainSolana, "demo")
	if len(m.Positions) != 0 {
		t.Errorf("positions = %d, want 0 after full sell", len(m.Positions))
	}

	// Without a buy record the symbol falls back to Unknown
	records, _ := f.history.List(context.Background(), "demo", domain.TradeTypeSell)
	if len(records) != 1 || records[0].TokenSymbol != "Unknown" {
		t.Errorf("unexpected sell records: %+v", records)
	}
}

func TestExecutor_FailedSellIsAnError(t *testing.T) {
	f := newFixture(t)
	f.reader.holdings["wallet1|mint1"] = 80
	f.dispatcher.signature = "" // relay declined

	_, err := f.executor.Sell(context.Background(), "demo", "wallet1", "mint1", 100, 30)
	if !errors.Is(err, ErrSellFailed) {
		t.Fatalf("err = %v, want ErrSellFailed", err)
	}

	// Nothing is recorded and the position survives
	m, _ := f.memePads.Get(context.Background(), domain.ChainSolana, "demo")
	if len(m.Positions) != 1 {
		t.Errorf("position removed on a failed sell")
	}
	records, _ := f.history.List(context.Background(), "demo", "")
	if len(records) != 0 {
		t.Errorf("history recorded on a failed sell")
	}
}

func TestExecutor_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.executor.Sell(ctx, "demo", "wallet1", "mint1", 0, 30); err == nil {
		t.Error("expected error for zero percentage")
	}
	if _, err := f.executor.Sell(ctx, "demo", "wallet1", "mint1", 120, 30); err == nil {
		t.Error("expected error for percentage above 100")
	}
	if _, err := f.executor.Sell(ctx, "demo", "ghost", "mint1", 50, 30); err == nil {
		t.Error("expected error for unknown wallet")
	}
	if _, err := f.executor.Sell(ctx, "demo", "wallet1", "unheld", 50, 30); err == nil {
		t.Error("expected error for unresolvable holding")
	}

	f.dispatcher.feeErr = errors.New("tip floor down")
	f.reader.holdings["wallet1|mint1"] = 10
	if _, err := f.executor.Sell(ctx, "demo", "wallet1", "mint1", 50, 30); err == nil {
		t.Error("expected error when the priority fee is unavailable")
	}
}
