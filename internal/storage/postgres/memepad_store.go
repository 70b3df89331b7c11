package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage"
)

// MemePadStore implements storage.MemePadStore using PostgreSQL.
// Settings and positions are stored as JSONB documents.
type MemePadStore struct {
	pool *Pool
}

// NewMemePadStore creates a new MemePadStore.
func NewMemePadStore(pool *Pool) *MemePadStore {
	return &MemePadStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MemePadStore = (*MemePadStore)(nil)

// Create adds a new memepad. Returns ErrDuplicateKey if (chain, name) exists.
func (s *MemePadStore) Create(ctx context.Context, m *domain.MemePad) error {
	settings, err := json.Marshal(m.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	positions, err := json.Marshal(positionsOrEmpty(m.Positions))
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}

	query := `
		INSERT INTO memepads (chain, name, settings, positions)
		VALUES ($1, $2, $3, $4)
	`
	_, err = s.pool.Exec(ctx, query, string(m.Chain), m.Name, settings, positions)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert memepad: %w", err)
	}
	return nil
}

// Get retrieves a memepad by name. Returns ErrNotFound if not exists.
func (s *MemePadStore) Get(ctx context.Context, chain domain.Chain, name string) (*domain.MemePad, error) {
	query := `
		SELECT settings, positions
		FROM memepads
		WHERE chain = $1 AND name = $2
	`

	var settingsRaw, positionsRaw []byte
	err := s.pool.QueryRow(ctx, query, string(chain), name).Scan(&settingsRaw, &positionsRaw)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get memepad: %w", err)
	}

	m := &domain.MemePad{Name: name, Chain: chain}
	if err := json.Unmarshal(settingsRaw, &m.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := json.Unmarshal(positionsRaw, &m.Positions); err != nil {
		return nil, fmt.Errorf("unmarshal positions: %w", err)
	}
	return m, nil
}

// UpdateSettings replaces the settings of an existing memepad.
func (s *MemePadStore) UpdateSettings(ctx context.Context, chain domain.Chain, name string, settings domain.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	query := `
		UPDATE memepads SET settings = $3
		WHERE chain = $1 AND name = $2
	`
	tag, err := s.pool.Exec(ctx, query, string(chain), name, raw)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a memepad. Returns ErrNotFound if not exists.
func (s *MemePadStore) Delete(ctx context.Context, chain domain.Chain, name string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM memepads WHERE chain = $1 AND name = $2`,
		string(chain), name)
	if err != nil {
		return fmt.Errorf("delete memepad: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListNames returns the names of all memepads on a chain.
func (s *MemePadStore) ListNames(ctx context.Context, chain domain.Chain) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name FROM memepads WHERE chain = $1 ORDER BY name ASC`,
		string(chain))
	if err != nil {
		return nil, fmt.Errorf("list memepad names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan memepad name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memepad names: %w", err)
	}
	return names, nil
}

// ListActive returns all memepads on a chain with PurchaseActive set.
func (s *MemePadStore) ListActive(ctx context.Context, chain domain.Chain) ([]*domain.MemePad, error) {
	query := `
		SELECT name, settings, positions
		FROM memepads
		WHERE chain = $1 AND (settings ->> 'purchaseActive')::boolean
		ORDER BY name ASC
	`
	rows, err := s.pool.Query(ctx, query, string(chain))
	if err != nil {
		return nil, fmt.Errorf("list active memepads: %w", err)
	}
	defer rows.Close()

	var pads []*domain.MemePad
	for rows.Next() {
		m := &domain.MemePad{Chain: chain}
		var settingsRaw, positionsRaw []byte
		if err := rows.Scan(&m.Name, &settingsRaw, &positionsRaw); err != nil {
			return nil, fmt.Errorf("scan memepad row: %w", err)
		}
		if err := json.Unmarshal(settingsRaw, &m.Settings); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
		if err := json.Unmarshal(positionsRaw, &m.Positions); err != nil {
			return nil, fmt.Errorf("unmarshal positions: %w", err)
		}
		pads = append(pads, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memepad rows: %w", err)
	}
	return pads, nil
}

// SetPurchaseActive toggles the purchase flag.
func (s *MemePadStore) SetPurchaseActive(ctx context.Context, chain domain.Chain, name string, active bool) error {
	query := `
		UPDATE memepads
		SET settings = jsonb_set(settings, '{purchaseActive}', to_jsonb($3::boolean))
		WHERE chain = $1 AND name = $2
	`
	tag, err := s.pool.Exec(ctx, query, string(chain), name, active)
	if err != nil {
		return fmt.Errorf("set purchase flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeactivateAll clears the purchase flag on every memepad of a chain.
func (s *MemePadStore) DeactivateAll(ctx context.Context, chain domain.Chain) error {
	query := `
		UPDATE memepads
		SET settings = jsonb_set(settings, '{purchaseActive}', 'false'::jsonb)
		WHERE chain = $1
	`
	if _, err := s.pool.Exec(ctx, query, string(chain)); err != nil {
		return fmt.Errorf("deactivate memepads: %w", err)
	}
	return nil
}

// AppendPosition adds an open position to a memepad.
func (s *MemePadStore) AppendPosition(ctx context.Context, chain domain.Chain, name string, p domain.Position) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}

	query := `
		UPDATE memepads
		SET positions = positions || $3::jsonb
		WHERE chain = $1 AND name = $2
	`
	tag, err := s.pool.Exec(ctx, query, string(chain), name, raw)
	if err != nil {
		return fmt.Errorf("append position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// RemovePosition removes the position identified by (wallet, token).
func (s *MemePadStore) RemovePosition(ctx context.Context, chain domain.Chain, name, wallet, tokenAddress string) error {
	// Filter the JSONB array server-side so concurrent appends to other
	// positions are not lost.
	query := `
		UPDATE memepads
		SET positions = COALESCE(
			(SELECT jsonb_agg(p) FROM jsonb_array_elements(positions) AS p
			 WHERE NOT (p ->> 'wallet' = $3 AND p ->> 'tokenAddress' = $4)),
			'[]'::jsonb
		)
		WHERE chain = $1 AND name = $2
		  AND positions @> jsonb_build_array(jsonb_build_object('wallet', $3::text, 'tokenAddress', $4::text))
	`
	tag, err := s.pool.Exec(ctx, query, string(chain), name, wallet, tokenAddress)
	if err != nil {
		return fmt.Errorf("remove position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func positionsOrEmpty(positions []domain.Position) []domain.Position {
	if positions == nil {
		return []domain.Position{}
	}
	return positions
}
