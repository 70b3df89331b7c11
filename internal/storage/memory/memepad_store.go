package memory

import (
	"context"
	"sort"
	"sync"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage"
)

type memepadKey struct {
	chain domain.Chain
	name  string
}

// MemePadStore is an in-memory implementation of storage.MemePadStore.
type MemePadStore struct {
	mu   sync.RWMutex
	data map[memepadKey]*domain.MemePad
}

// NewMemePadStore creates a new in-memory memepad store.
func NewMemePadStore() *MemePadStore {
	return &MemePadStore{
		data: make(map[memepadKey]*domain.MemePad),
	}
}

var _ storage.MemePadStore = (*MemePadStore)(nil)

// Create adds a new memepad. Returns ErrDuplicateKey if (chain, name) exists.
func (s *MemePadStore) Create(_ context.Context, m *domain.MemePad) error {
	if m == nil || m.Name == "" || m.Chain == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := memepadKey{m.Chain, m.Name}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = copyMemePad(m)
	return nil
}

// Get retrieves a memepad by name. Returns ErrNotFound if not exists.
func (s *MemePadStore) Get(_ context.Context, chain domain.Chain, name string) (*domain.MemePad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[memepadKey{chain, name}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyMemePad(m), nil
}

// UpdateSettings replaces the settings of an existing memepad.
func (s *MemePadStore) UpdateSettings(_ context.Context, chain domain.Chain, name string, settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.data[memepadKey{chain, name}]
	if !exists {
		return storage.ErrNotFound
	}
	m.Settings = settings
	return nil
}

// Delete removes a memepad. Returns ErrNotFound if not exists.
func (s *MemePadStore) Delete(_ context.Context, chain domain.Chain, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memepadKey{chain, name}
	if _, exists := s.data[key]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, key)
	return nil
}

// ListNames returns the names of all memepads on a chain, sorted.
func (s *MemePadStore) ListNames(_ context.Context, chain domain.Chain) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for key := range s.data {
		if key.chain == chain {
			names = append(names, key.name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListActive returns all memepads on a chain with PurchaseActive set,
// sorted by name for deterministic campaign processing order.
func (s *MemePadStore) ListActive(_ context.Context, chain domain.Chain) ([]*domain.MemePad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MemePad
	for key, m := range s.data {
		if key.chain == chain && m.Settings.PurchaseActive {
			result = append(result, copyMemePad(m))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// SetPurchaseActive toggles the purchase flag.
func (s *MemePadStore) SetPurchaseActive(_ context.Context, chain domain.Chain, name string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.data[memepadKey{chain, name}]
	if !exists {
		return storage.ErrNotFound
	}
	m.Settings.PurchaseActive = active
	return nil
}

// DeactivateAll clears the purchase flag on every memepad of a chain.
func (s *MemePadStore) DeactivateAll(_ context.Context, chain domain.Chain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, m := range s.data {
		if key.chain == chain {
			m.Settings.PurchaseActive = false
		}
	}
	return nil
}

// AppendPosition adds an open position to a memepad.
func (s *MemePadStore) AppendPosition(_ context.Context, chain domain.Chain, name string, p domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.data[memepadKey{chain, name}]
	if !exists {
		return storage.ErrNotFound
	}
	m.Positions = append(m.Positions, p)
	return nil
}

// RemovePosition removes the position identified by (wallet, token).
func (s *MemePadStore) RemovePosition(_ context.Context, chain domain.Chain, name, wallet, tokenAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.data[memepadKey{chain, name}]
	if !exists {
		return storage.ErrNotFound
	}

	for i, p := range m.Positions {
		if p.Wallet == wallet && p.TokenAddress == tokenAddress {
			m.Positions = append(m.Positions[:i], m.Positions[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func copyMemePad(m *domain.MemePad) *domain.MemePad {
	cp := *m
	cp.Positions = append([]domain.Position(nil), m.Positions...)
	cp.Settings.NamesToBuy = append([]string(nil), m.Settings.NamesToBuy...)
	cp.Settings.HardNames = append([]bool(nil), m.Settings.HardNames...)
	if m.Settings.BuyingRange != nil {
		r := *m.Settings.BuyingRange
		cp.Settings.BuyingRange = &r
	}
	return &cp
}
