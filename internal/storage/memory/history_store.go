package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage"
)

// HistoryStore is an in-memory implementation of storage.HistoryStore.
type HistoryStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*domain.HistoryRecord
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		data: make(map[int64]*domain.HistoryRecord),
	}
}

var _ storage.HistoryStore = (*HistoryStore)(nil)

// Insert appends a record and assigns its ID.
func (s *HistoryStore) Insert(_ context.Context, r *domain.HistoryRecord) error {
	if r == nil || r.MemePadName == "" || r.Wallet == "" || r.Type == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	r.ID = s.nextID
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}

	cp := *r
	s.data[r.ID] = &cp
	return nil
}

// List returns records for a memepad, newest first.
func (s *HistoryStore) List(_ context.Context, memePadName string, typeFilter domain.TradeType) ([]*domain.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HistoryRecord
	for _, r := range s.data {
		if r.MemePadName != memePadName {
			continue
		}
		if typeFilter != "" && r.Type != typeFilter {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp > result[j].Timestamp
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// FindBuy returns the buy record for (memepad, wallet, token), or ErrNotFound.
func (s *HistoryStore) FindBuy(_ context.Context, memePadName, wallet, tokenAddress string) (*domain.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.data {
		if r.MemePadName == memePadName && r.Wallet == wallet &&
			r.TokenAddress == tokenAddress && r.Type == domain.TradeTypeBuy {
			cp := *r
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// UpdateAmount resolves a pending record's amount.
func (s *HistoryStore) UpdateAmount(_ context.Context, id int64, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	r.Amount = amount
	return nil
}

// Delete removes a record.
func (s *HistoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}
