package storage

import (
	"context"

	"memepad-engine/internal/domain"
)

// MemePadStore provides access to memepad storage. A memepad name is
// unique per chain.
type MemePadStore interface {
	// Create adds a new memepad. Returns ErrDuplicateKey if (chain, name) exists.
	Create(ctx context.Context, m *domain.MemePad) error

	// Get retrieves a memepad by name. Returns ErrNotFound if not exists.
	Get(ctx context.Context, chain domain.Chain, name string) (*domain.MemePad, error)

	// UpdateSettings replaces the settings of an existing memepad.
	UpdateSettings(ctx context.Context, chain domain.Chain, name string, s domain.Settings) error

	// Delete removes a memepad. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, chain domain.Chain, name string) error

	// ListNames returns the names of all memepads on a chain.
	ListNames(ctx context.Context, chain domain.Chain) ([]string, error)

	// ListActive returns all memepads on a chain with PurchaseActive set.
	ListActive(ctx context.Context, chain domain.Chain) ([]*domain.MemePad, error)

	// SetPurchaseActive toggles the purchase flag.
	SetPurchaseActive(ctx context.Context, chain domain.Chain, name string, active bool) error

	// DeactivateAll clears the purchase flag on every memepad of a chain.
	// Called on startup so a restart never resumes stale subscriptions.
	DeactivateAll(ctx context.Context, chain domain.Chain) error

	// AppendPosition adds an open position to a memepad.
	AppendPosition(ctx context.Context, chain domain.Chain, name string, p domain.Position) error

	// RemovePosition removes the position identified by (wallet, token).
	// Returns ErrNotFound if no such position exists.
	RemovePosition(ctx context.Context, chain domain.Chain, name, wallet, tokenAddress string) error
}

// WalletStore provides access to wallet storage.
type WalletStore interface {
	// Insert adds a new wallet. Returns ErrDuplicateKey if (chain, group, address) exists.
	Insert(ctx context.Context, w *domain.Wallet) error

	// Get retrieves a wallet by address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, chain domain.Chain, address string) (*domain.Wallet, error)

	// Delete removes a wallet from a group. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, chain domain.Chain, address, group string) error

	// ListByGroup returns the wallets of a group in insertion order.
	// Stable ordering is what makes the rotation cursor meaningful.
	ListByGroup(ctx context.Context, chain domain.Chain, group string) ([]*domain.Wallet, error)

	// IncrementPurchases adds one to the wallet's purchase counter.
	IncrementPurchases(ctx context.Context, chain domain.Chain, address string) error

	// ResetPurchases zeroes the purchase counter for every wallet of a group.
	ResetPurchases(ctx context.Context, chain domain.Chain, group string) error
}

// GroupStore provides access to wallet-group storage.
type GroupStore interface {
	// Insert adds a new group. Returns ErrDuplicateKey if (chain, name) exists.
	Insert(ctx context.Context, g *domain.Group) error

	// Get retrieves a group by name. Returns ErrNotFound if not exists.
	Get(ctx context.Context, chain domain.Chain, name string) (*domain.Group, error)

	// Delete removes a group. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, chain domain.Chain, name string) error

	// Exists reports whether a group exists.
	Exists(ctx context.Context, chain domain.Chain, name string) (bool, error)

	// ListNames returns all group names on a chain.
	ListNames(ctx context.Context, chain domain.Chain) ([]string, error)

	// AdjustCount adds delta to the group's address count.
	AdjustCount(ctx context.Context, chain domain.Chain, name string, delta int) error
}

// HistoryStore provides access to the append-only buy/sell history.
type HistoryStore interface {
	// Insert appends a record and assigns its ID.
	Insert(ctx context.Context, r *domain.HistoryRecord) error

	// List returns records for a memepad, newest first. typeFilter narrows
	// to buy or sell records; the empty string returns both.
	List(ctx context.Context, memePadName string, typeFilter domain.TradeType) ([]*domain.HistoryRecord, error)

	// FindBuy returns the buy record for (memepad, wallet, token),
	// or ErrNotFound.
	FindBuy(ctx context.Context, memePadName, wallet, tokenAddress string) (*domain.HistoryRecord, error)

	// UpdateAmount resolves a pending record's amount.
	UpdateAmount(ctx context.Context, id int64, amount float64) error

	// Delete removes a record whose transaction turned out not to exist.
	Delete(ctx context.Context, id int64) error
}

// TradeTickStore archives trade events observed while tracking positions.
type TradeTickStore interface {
	// Insert appends a tick.
	Insert(ctx context.Context, t *domain.TradeTick) error

	// GetByMint returns all archived ticks for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.TradeTick, error)
}
