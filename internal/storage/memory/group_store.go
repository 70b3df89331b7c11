package memory

import (
	"context"
	"sort"
	"sync"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage"
)

type groupKey struct {
	chain domain.Chain
	name  string
}

// GroupStore is an in-memory implementation of storage.GroupStore.
type GroupStore struct {
	mu   sync.RWMutex
	data map[groupKey]*domain.Group
}

// NewGroupStore creates a new in-memory group store.
func NewGroupStore() *GroupStore {
	return &GroupStore{
		data: make(map[groupKey]*domain.Group),
	}
}

var _ storage.GroupStore = (*GroupStore)(nil)

// Insert adds a new group. Returns ErrDuplicateKey if (chain, name) exists.
func (s *GroupStore) Insert(_ context.Context, g *domain.Group) error {
	if g == nil || g.Name == "" || g.Chain == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := groupKey{g.Chain, g.Name}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *g
	s.data[key] = &cp
	return nil
}

// Get retrieves a group by name. Returns ErrNotFound if not exists.
func (s *GroupStore) Get(_ context.Context, chain domain.Chain, name string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, exists := s.data[groupKey{chain, name}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

// Delete removes a group. Returns ErrNotFound if not exists.
func (s *GroupStore) Delete(_ context.Context, chain domain.Chain, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := groupKey{chain, name}
	if _, exists := s.data[key]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, key)
	return nil
}

// Exists reports whether a group exists.
func (s *GroupStore) Exists(_ context.Context, chain domain.Chain, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[groupKey{chain, name}]
	return exists, nil
}

// ListNames returns all group names on a chain, sorted.
func (s *GroupStore) ListNames(_ context.Context, chain domain.Chain) ([]string, error) {
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

// AdjustCount adds delta to the group's address count.
func (s *GroupStore) AdjustCount(_ context.Context, chain domain.Chain, name string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, exists := s.data[groupKey{chain, name}]
	if !exists {
		return storage.ErrNotFound
	}
	g.AddressCount += delta
	return nil
}
