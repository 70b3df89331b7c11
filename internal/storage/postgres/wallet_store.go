package postgres

import (
	"context"
	"fmt"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL. The
// serial id column preserves insertion order for rotation.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Insert adds a new wallet. Returns ErrDuplicateKey if (chain, group, address) exists.
func (s *WalletStore) Insert(ctx context.Context, w *domain.Wallet) error {
	query := `
		INSERT INTO wallets (chain, group_name, address, private_key, purchases)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.pool.Exec(ctx, query,
		string(w.Chain), w.Group, w.Address, w.PrivateKey, w.Purchases)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// Get retrieves a wallet by address. Returns ErrNotFound if not exists.
func (s *WalletStore) Get(ctx context.Context, chain domain.Chain, address string) (*domain.Wallet, error) {
	query := `
		SELECT address, private_key, group_name, purchases
		FROM wallets
		WHERE chain = $1 AND address = $2
	`

	w := &domain.Wallet{Chain: chain}
	err := s.pool.QueryRow(ctx, query, string(chain), address).
		Scan(&w.Address, &w.PrivateKey, &w.Group, &w.Purchases)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// Delete removes a wallet from a group. Returns ErrNotFound if not exists.
func (s *WalletStore) Delete(ctx context.Context, chain domain.Chain, address, group string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM wallets WHERE chain = $1 AND address = $2 AND group_name = $3`,
		string(chain), address, group)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByGroup returns the wallets of a group in insertion order.
func (s *WalletStore) ListByGroup(ctx context.Context, chain domain.Chain, group string) ([]*domain.Wallet, error) {
	query := `
		SELECT address, private_key, group_name, purchases
		FROM wallets
		WHERE chain = $1 AND group_name = $2
		ORDER BY id ASC
	`
	rows, err := s.pool.Query(ctx, query, string(chain), group)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*domain.Wallet
	for rows.Next() {
		w := &domain.Wallet{Chain: chain}
		if err := rows.Scan(&w.Address, &w.PrivateKey, &w.Group, &w.Purchases); err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return wallets, nil
}

// IncrementPurchases adds one to the wallet's purchase counter.
func (s *WalletStore) IncrementPurchases(ctx context.Context, chain domain.Chain, address string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE wallets SET purchases = purchases + 1 WHERE chain = $1 AND address = $2`,
		string(chain), address)
	if err != nil {
		return fmt.Errorf("increment purchases: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ResetPurchases zeroes the purchase counter for every wallet of a group.
func (s *WalletStore) ResetPurchases(ctx context.Context, chain domain.Chain, group string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE wallets SET purchases = 0 WHERE chain = $1 AND group_name = $2`,
		string(chain), group)
	if err != nil {
		return fmt.Errorf("reset purchases: %w", err)
	}
	return nil
}
