package memory

import (
	"context"
	"sort"
	"sync"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage"
)

// TradeTickStore is an in-memory implementation of storage.TradeTickStore.
type TradeTickStore struct {
	mu    sync.RWMutex
	ticks []*domain.TradeTick
}

// NewTradeTickStore creates a new in-memory trade tick store.
func NewTradeTickStore() *TradeTickStore {
	return &TradeTickStore{}
}

var _ storage.TradeTickStore = (*TradeTickStore)(nil)

// Insert appends a tick.
func (s *TradeTickStore) Insert(_ context.Context, t *domain.TradeTick) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	s.ticks = append(s.ticks, &cp)
	return nil
}

// GetByMint returns all archived ticks for a mint, ordered by timestamp ASC.
func (s *TradeTickStore) GetByMint(_ context.Context, mint string) ([]*domain.TradeTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeTick
	for _, t := range s.ticks {
		if t.Mint == mint {
			cp := *t
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result, nil
}
