package postgres

import (
	"context"
	"fmt"
	"time"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage"
)

// HistoryStore implements storage.HistoryStore using PostgreSQL.
type HistoryStore struct {
	pool *Pool
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(pool *Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HistoryStore = (*HistoryStore)(nil)

// Insert appends a record and assigns its ID. A zero timestamp is
// filled with the current time.
func (s *HistoryStore) Insert(ctx context.Context, r *domain.HistoryRecord) error {
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
	query := `
		INSERT INTO history_records
			(memepad_name, wallet, token_address, token_symbol, trade_type, amount, signature, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := s.pool.QueryRow(ctx, query,
		r.MemePadName, r.Wallet, r.TokenAddress, r.TokenSymbol,
		string(r.Type), r.Amount, r.Signature, r.Timestamp).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// List returns records for a memepad, newest first. typeFilter narrows
// to buy or sell records; the empty string returns both.
func (s *HistoryStore) List(ctx context.Context, memePadName string, typeFilter domain.TradeType) ([]*domain.HistoryRecord, error) {
	query := `
		SELECT id, memepad_name, wallet, token_address, token_symbol, trade_type, amount, signature, ts
		FROM history_records
		WHERE memepad_name = $1 AND ($2 = '' OR trade_type = $2)
		ORDER BY ts DESC, id DESC
	`
	rows, err := s.pool.Query(ctx, query, memePadName, string(typeFilter))
	if err != nil {
		return nil, fmt.Errorf("list history records: %w", err)
	}
	defer rows.Close()

	var records []*domain.HistoryRecord
	for rows.Next() {
		r := &domain.HistoryRecord{}
		var tradeType string
		if err := rows.Scan(&r.ID, &r.MemePadName, &r.Wallet, &r.TokenAddress,
			&r.TokenSymbol, &tradeType, &r.Amount, &r.Signature, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		r.Type = domain.TradeType(tradeType)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return records, nil
}

// FindBuy returns the buy record for (memepad, wallet, token), or ErrNotFound.
func (s *HistoryStore) FindBuy(ctx context.Context, memePadName, wallet, tokenAddress string) (*domain.HistoryRecord, error) {
	query := `
		SELECT id, memepad_name, wallet, token_address, token_symbol, trade_type, amount, signature, ts
		FROM history_records
		WHERE memepad_name = $1 AND wallet = $2 AND token_address = $3 AND trade_type = 'buy'
		ORDER BY ts DESC, id DESC
		LIMIT 1
	`
	r := &domain.HistoryRecord{}
	var tradeType string
	err := s.pool.QueryRow(ctx, query, memePadName, wallet, tokenAddress).
		Scan(&r.ID, &r.MemePadName, &r.Wallet, &r.TokenAddress,
			&r.TokenSymbol, &tradeType, &r.Amount, &r.Signature, &r.Timestamp)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find buy record: %w", err)
	}
	r.Type = domain.TradeType(tradeType)
	return r, nil
}

// UpdateAmount resolves a pending record's amount.
func (s *HistoryStore) UpdateAmount(ctx context.Context, id int64, amount float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE history_records SET amount = $2 WHERE id = $1`,
		id, amount)
	if err != nil {
		return fmt.Errorf("update history amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a record whose transaction turned out not to exist.
func (s *HistoryStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM history_records WHERE id = $1`,
		id)
	if err != nil {
		return fmt.Errorf("delete history record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
