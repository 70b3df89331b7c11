// Package history reads and reconciles the buy/sell ledger. Buy
// records start pending (zero amount) and are resolved lazily on read
// from the confirmed transaction's post-trade balances.
package history

import (
	"context"

	"github.com/sirupsen/logrus"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/solana"
	"memepad-engine/internal/storage"
)

// ChainReader looks up confirmed transactions.
type ChainReader interface {
	GetParsedTransaction(ctx context.Context, signature string) (*solana.ParsedTransaction, error)
}

// Ledger wraps the history store with reconciliation.
type Ledger struct {
	store  storage.HistoryStore
	reader ChainReader
	log    *logrus.Entry
}

// NewLedger creates a ledger.
func NewLedger(store storage.HistoryStore, reader ChainReader, log *logrus.Entry) *Ledger {
	return &Ledger{store: store, reader: reader, log: log}
}

// Record appends a history record.
func (l *Ledger) Record(ctx context.Context, r *domain.HistoryRecord) error {
	return l.store.Insert(ctx, r)
}

// Read returns a memepad's records newest first, reconciling pending
// ones along the way. A pending record whose transaction landed gets
// its amount from the wallet's post-trade token balance; one whose
// transaction cannot be found is deleted. Lookup failures leave the
// record pending for the next read.
func (l *Ledger) Read(ctx context.Context, memePadName string, typeFilter domain.TradeType) ([]*domain.HistoryRecord, error) {
	records, err := l.store.List(ctx, memePadName, typeFilter)
	if err != nil {
		return nil, err
	}

	changed := false
	for _, r := range records {
		if r.Amount != 0 {
			continue
		}
		if l.reconcile(ctx, r) {
			changed = true
		}
	}

	if !changed {
		return records, nil
	}
	return l.store.List(ctx, memePadName, typeFilter)
}

// reconcile resolves one pending record. Reports whether the stored
// record changed.
func (l *Ledger) reconcile(ctx context.Context, r *domain.HistoryRecord) bool {
	log := l.log.WithFields(logrus.Fields{
		"id":        r.ID,
		"signature": r.Signature,
	})

	tx, err := l.reader.GetParsedTransaction(ctx, r.Signature)
	if err != nil {
		log.WithError(err).Debug("transaction lookup failed, record stays pending")
		return false
	}
	if tx == nil {
		// The dispatch never landed: the record describes nothing
		if err := l.store.Delete(ctx, r.ID); err != nil {
			log.WithError(err).Warn("delete orphaned record")
			return false
		}
		log.Info("deleted record for a transaction that never landed")
		return true
	}

	for _, b := range tx.PostTokenBalances {
		if b.Owner == r.Wallet && b.Mint == r.TokenAddress && b.UIAmount > 0 {
			if err := l.store.UpdateAmount(ctx, r.ID, b.UIAmount); err != nil {
				log.WithError(err).Warn("resolve record amount")
				return false
			}
			return true
		}
	}

	log.Debug("transaction has no matching balance yet, record stays pending")
	return false
}
