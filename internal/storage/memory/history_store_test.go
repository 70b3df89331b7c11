package memory

import (
	"context"
	"errors"
	"testing"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage"
)

func TestHistoryStore_InsertAssignsID(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()

	r := &domain.HistoryRecord{
		MemePadName: "demo",
		Wallet:      "W1",
		TokenAddress: "M1",
		TokenSymbol: "MOON",
		Type:        domain.TradeTypeBuy,
		Signature:   "sig1",
	}
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if r.ID == 0 {
		t.Error("Insert did not assign an ID")
	}
	if r.Timestamp == 0 {
		t.Error("Insert did not assign a timestamp")
	}
}

func TestHistoryStore_ListNewestFirst(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()

	for i, sig := range []string{"s1", "s2", "s3"} {
		store.Insert(ctx, &domain.HistoryRecord{
			MemePadName: "demo",
			Wallet:      "W1",
			TokenAddress: "M1",
			Type:        domain.TradeTypeBuy,
			Signature:   sig,
			Timestamp:   int64(1000 + i),
		})
	}

	records, err := store.List(ctx, "demo", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[0].Signature != "s3" || records[2].Signature != "s1" {
		t.Errorf("Records not newest-first: %s, %s, %s",
			records[0].Signature, records[1].Signature, records[2].Signature)
	}
}

func TestHistoryStore_TypeFilter(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()

	store.Insert(ctx, &domain.HistoryRecord{
		MemePadName: "demo", Wallet: "W1", TokenAddress: "M1",
		Type: domain.TradeTypeBuy, Signature: "s1",
	})
	store.Insert(ctx, &domain.HistoryRecord{
		MemePadName: "demo", Wallet: "W1", TokenAddress: "M1",
		Type: domain.TradeTypeSell, Signature: "s2", Amount: 5,
	})

	sells, _ := store.List(ctx, "demo", domain.TradeTypeSell)
	if len(sells) != 1 || sells[0].Type != domain.TradeTypeSell {
		t.Errorf("Sell filter returned %v", sells)
	}

	all, _ := store.List(ctx, "demo", "")
	if len(all) != 2 {
		t.Errorf("Expected 2 records unfiltered, got %d", len(all))
	}
}

func TestHistoryStore_UpdateAmountAndDelete(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()

	r := &domain.HistoryRecord{
		MemePadName: "demo", Wallet: "W1", TokenAddress: "M1",
		Type: domain.TradeTypeBuy, Signature: "s1",
	}
	store.Insert(ctx, r)

	if err := store.UpdateAmount(ctx, r.ID, 42.5); err != nil {
		t.Fatalf("UpdateAmount failed: %v", err)
	}
	records, _ := store.List(ctx, "demo", "")
	if records[0].Amount != 42.5 {
		t.Errorf("Amount not updated: %f", records[0].Amount)
	}

	if err := store.Delete(ctx, r.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, r.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestHistoryStore_FindBuy(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()

	store.Insert(ctx, &domain.HistoryRecord{
		MemePadName: "demo", Wallet: "W1", TokenAddress: "M1",
		TokenSymbol: "MOON", Type: domain.TradeTypeBuy, Signature: "s1",
	})
	store.Insert(ctx, &domain.HistoryRecord{
		MemePadName: "demo", Wallet: "W1", TokenAddress: "M1",
		Type: domain.TradeTypeSell, Signature: "s2", Amount: 1,
	})

	buy, err := store.FindBuy(ctx, "demo", "W1", "M1")
	if err != nil {
		t.Fatalf("FindBuy failed: %v", err)
	}
	if buy.TokenSymbol != "MOON" {
		t.Errorf("Wrong record: %+v", buy)
	}

	_, err = store.FindBuy(ctx, "demo", "W2", "M1")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
