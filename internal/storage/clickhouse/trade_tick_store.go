package clickhouse

import (
	"context"
	"fmt"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage"
)

// TradeTickStore implements storage.TradeTickStore using ClickHouse.
// Ticks are append-only; the MergeTree key keeps reads by mint cheap.
type TradeTickStore struct {
	conn *Conn
}

// NewTradeTickStore creates a new TradeTickStore.
func NewTradeTickStore(conn *Conn) *TradeTickStore {
	return &TradeTickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeTickStore = (*TradeTickStore)(nil)

// Insert appends a tick.
func (s *TradeTickStore) Insert(ctx context.Context, t *domain.TradeTick) error {
	query := `
		INSERT INTO trade_ticks (
			mint, trader, side, token_amount, market_cap_sol, timestamp_ms
		) VALUES (?, ?, ?, ?, ?, ?)
	`
	err := s.conn.Exec(ctx, query,
		t.Mint, t.Trader, string(t.Side),
		t.TokenAmount, t.MarketCapSol, uint64(t.Timestamp))
	if err != nil {
		return fmt.Errorf("insert trade tick: %w", err)
	}
	return nil
}

// GetByMint returns all archived ticks for a mint, ordered by timestamp ASC.
func (s *TradeTickStore) GetByMint(ctx context.Context, mint string) ([]*domain.TradeTick, error) {
	query := `
		SELECT mint, trader, side, token_amount, market_cap_sol, timestamp_ms
		FROM trade_ticks
		WHERE mint = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query ticks by mint: %w", err)
	}
	defer rows.Close()

	var ticks []*domain.TradeTick
	for rows.Next() {
		var t domain.TradeTick
		var side string
		var timestampMs uint64

		err := rows.Scan(&t.Mint, &t.Trader, &side, &t.TokenAmount, &t.MarketCapSol, &timestampMs)
		if err != nil {
			return nil, fmt.Errorf("scan trade tick row: %w", err)
		}

		t.Side = domain.TradeSide(side)
		t.Timestamp = int64(timestampMs)
		ticks = append(ticks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade tick rows: %w", err)
	}

	return ticks, nil
}
