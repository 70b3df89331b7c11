package memory

import (
	"context"
	"sync"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage"
)

// WalletStore is an in-memory implementation of storage.WalletStore.
// Wallets keep insertion order per group so the rotation cursor selects
// a stable sequence.
type WalletStore struct {
	mu      sync.RWMutex
	wallets []*domain.Wallet
}

// NewWalletStore creates a new in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{}
}

var _ storage.WalletStore = (*WalletStore)(nil)

// Insert adds a new wallet. Returns ErrDuplicateKey if (chain, group, address) exists.
func (s *WalletStore) Insert(_ context.Context, w *domain.Wallet) error {
	if w == nil || w.Address == "" || w.Chain == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.wallets {
		if existing.Chain == w.Chain && existing.Group == w.Group && existing.Address == w.Address {
			return storage.ErrDuplicateKey
		}
	}

	cp := *w
	s.wallets = append(s.wallets, &cp)
	return nil
}

// Get retrieves a wallet by address. Returns ErrNotFound if not exists.
func (s *WalletStore) Get(_ context.Context, chain domain.Chain, address string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.wallets {
		if w.Chain == chain && w.Address == address {
			cp := *w
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// Delete removes a wallet from a group. Returns ErrNotFound if not exists.
func (s *WalletStore) Delete(_ context.Context, chain domain.Chain, address, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.wallets {
		if w.Chain == chain && w.Address == address && w.Group == group {
			s.wallets = append(s.wallets[:i], s.wallets[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

// ListByGroup returns the wallets of a group in insertion order.
func (s *WalletStore) ListByGroup(_ context.Context, chain domain.Chain, group string) ([]*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Wallet
	for _, w := range s.wallets {
		if w.Chain == chain && w.Group == group {
			cp := *w
			result = append(result, &cp)
		}
	}
	return result, nil
}

// IncrementPurchases adds one to the wallet's purchase counter.
func (s *WalletStore) IncrementPurchases(_ context.Context, chain domain.Chain, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.wallets {
		if w.Chain == chain && w.Address == address {
			w.Purchases++
			return nil
		}
	}
	return storage.ErrNotFound
}

// ResetPurchases zeroes the purchase counter for every wallet of a group.
func (s *WalletStore) ResetPurchases(_ context.Context, chain domain.Chain, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.wallets {
		if w.Chain == chain && w.Group == group {
			w.Purchases = 0
		}
	}
	return nil
}
