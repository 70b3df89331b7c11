package postgres

import (
	"context"
	"fmt"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage"
)

// GroupStore implements storage.GroupStore using PostgreSQL.
type GroupStore struct {
	pool *Pool
}

// NewGroupStore creates a new GroupStore.
func NewGroupStore(pool *Pool) *GroupStore {
	return &GroupStore{pool: pool}
}

// Compile-time interface check.
var _ storage.GroupStore = (*GroupStore)(nil)

// Insert adds a new group. Returns ErrDuplicateKey if (chain, name) exists.
func (s *GroupStore) Insert(ctx context.Context, g *domain.Group) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO wallet_groups (chain, name, address_count) VALUES ($1, $2, $3)`,
		string(g.Chain), g.Name, g.AddressCount)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

// Get retrieves a group by name. Returns ErrNotFound if not exists.
func (s *GroupStore) Get(ctx context.Context, chain domain.Chain, name string) (*domain.Group, error) {
	g := &domain.Group{Name: name, Chain: chain}
	err := s.pool.QueryRow(ctx,
		`SELECT address_count FROM wallet_groups WHERE chain = $1 AND name = $2`,
		string(chain), name).Scan(&g.AddressCount)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

// Delete removes a group. Returns ErrNotFound if not exists.
func (s *GroupStore) Delete(ctx context.Context, chain domain.Chain, name string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM wallet_groups WHERE chain = $1 AND name = $2`,
		string(chain), name)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Exists reports whether a group exists.
func (s *GroupStore) Exists(ctx context.Context, chain domain.Chain, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM wallet_groups WHERE chain = $1 AND name = $2)`,
		string(chain), name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check group exists: %w", err)
	}
	return exists, nil
}

// ListNames returns all group names on a chain.
func (s *GroupStore) ListNames(ctx context.Context, chain domain.Chain) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name FROM wallet_groups WHERE chain = $1 ORDER BY name ASC`,
		string(chain))
	if err != nil {
		return nil, fmt.Errorf("list group names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan group name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group names: %w", err)
	}
	return names, nil
}

// AdjustCount adds delta to the group's address count.
func (s *GroupStore) AdjustCount(ctx context.Context, chain domain.Chain, name string, delta int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE wallet_groups SET address_count = address_count + $3 WHERE chain = $1 AND name = $2`,
		string(chain), name, delta)
	if err != nil {
		return fmt.Errorf("adjust group count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
