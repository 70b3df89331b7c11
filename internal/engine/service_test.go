package engine

import (
	"context"
	"errors"
	"testing"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage"
	"memepad-engine/internal/storage/memory"
)

func newServiceFixture(t *testing.T) (Service, *memory.GroupStore, *engineFixture) {
	t.Helper()

	f := newFixture(t, Options{})
	groups := memory.NewGroupStore()
	err := groups.Insert(context.Background(), &domain.Group{
		Name:  "main",
		Chain: domain.ChainSolana,
	})
	if err != nil {
		t.Fatalf("insert group: %v", err)
	}
	return NewSolanaService(f.engine, f.memePads, groups), groups, f
}

func TestService_CreateMemePad(t *testing.T) {
	svc, _, _ := newServiceFixture(t)
	ctx := context.Background()

	if err := svc.CreateMemePad(ctx, "demo", demoSettings()); err != nil {
		t.Fatalf("CreateMemePad failed: %v", err)
	}

	m, err := svc.GetMemePad(ctx, "demo")
	if err != nil {
		t.Fatalf("GetMemePad failed: %v", err)
	}
	if m.Settings.PurchaseActive {
		t.Error("new memepad must not be purchasing")
	}

	if err := svc.CreateMemePad(ctx, "demo", demoSettings()); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("duplicate create = %v, want ErrDuplicateKey", err)
	}
}

func TestService_CreateMemePad_Validation(t *testing.T) {
	svc, _, _ := newServiceFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*domain.Settings)
	}{
		{"mismatched rule lists", func(s *domain.Settings) { s.HardNames = nil }},
		{"missing range", func(s *domain.Settings) { s.BuyingRange = nil }},
		{"inverted range", func(s *domain.Settings) { s.BuyingRange = &domain.BuyingRange{Min: 1, Max: 0.1} }},
		{"unknown group", func(s *domain.Settings) { s.WalletsListName = "ghost" }},
		{"unknown buying type", func(s *domain.Settings) { s.BuyingType = "martingale" }},
	}

	if err := svc.CreateMemePad(ctx, "", demoSettings()); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty name = %v, want ErrInvalidInput", err)
	}
	for _, tc := range cases {
		s := demoSettings()
		tc.mutate(&s)
		if err := svc.CreateMemePad(ctx, "pad-"+tc.name, s); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ErrInvalidInput", tc.name, err)
		}
	}

	s := demoSettings()
	s.BuyingType = domain.BuyingTypePercentage
	s.BuyingPercentage = 150
	if err := svc.CreateMemePad(ctx, "pct", s); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("bad percentage = %v, want ErrInvalidInput", err)
	}
}

func TestService_EditAndDeleteBlockedWhileActive(t *testing.T) {
	svc, _, f := newServiceFixture(t)
	f.addWallets(t, "main", "wallet1")
	ctx := context.Background()

	if err := svc.CreateMemePad(ctx, "demo", demoSettings()); err != nil {
		t.Fatalf("CreateMemePad failed: %v", err)
	}
	if err := svc.StartPurchase(ctx, "demo"); err != nil {
		t.Fatalf("StartPurchase failed: %v", err)
	}

	if err := svc.UpdateSettings(ctx, "demo", demoSettings()); err == nil {
		t.Error("expected edit to be blocked while purchasing")
	}
	if err := svc.DeleteMemePad(ctx, "demo"); err == nil {
		t.Error("expected delete to be blocked while purchasing")
	}

	if err := svc.StopPurchase(ctx, "demo"); err != nil {
		t.Fatalf("StopPurchase failed: %v", err)
	}
	updated := demoSettings()
	updated.Slippage = 45
	if err := svc.UpdateSettings(ctx, "demo", updated); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	m, _ := svc.GetMemePad(ctx, "demo")
	if m.Settings.Slippage != 45 {
		t.Errorf("slippage = %f, want 45", m.Settings.Slippage)
	}
	if err := svc.DeleteMemePad(ctx, "demo"); err != nil {
		t.Fatalf("DeleteMemePad failed: %v", err)
	}
	if _, err := svc.GetMemePad(ctx, "demo"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
}

func TestRegistry(t *testing.T) {
	svc, _, _ := newServiceFixture(t)

	reg := NewRegistry()
	reg.Register(domain.ChainSolana, svc)
	reg.Register(domain.ChainBSC, NewUnsupportedService(domain.ChainBSC))

	resolved, err := reg.Get(domain.ChainSolana)
	if err != nil || resolved == nil {
		t.Fatalf("Get(solana) = %v", err)
	}

	bsc, err := reg.Get(domain.ChainBSC)
	if err != nil {
		t.Fatalf("Get(bsc) = %v", err)
	}
	if err := bsc.StartPurchase(context.Background(), "demo"); !errors.Is(err, ErrChainNotSupported) {
		t.Errorf("bsc start = %v, want ErrChainNotSupported", err)
	}

	if _, err := reg.Get("tron"); !errors.Is(err, ErrChainNotSupported) {
		t.Errorf("unknown chain = %v, want ErrChainNotSupported", err)
	}
}
