// Package wallets rotates buy attempts across a memepad's wallet group.
package wallets

import (
	"context"
	"fmt"
	"sync"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage"
)

// ErrEmptyGroup is returned when an allocation is attempted against a
// group with no wallets.
var ErrEmptyGroup = fmt.Errorf("wallet group is empty")

// Allocator holds one rotation cursor per memepad. The cursor is
// process-local: a restart resets rotation fairness, which is an
// accepted non-durability of this design.
type Allocator struct {
	store storage.WalletStore
	chain domain.Chain

	mu      sync.Mutex
	cursors map[string]int
}

// NewAllocator creates an allocator backed by the given wallet store.
func NewAllocator(store storage.WalletStore, chain domain.Chain) *Allocator {
	return &Allocator{
		store:   store,
		chain:   chain,
		cursors: make(map[string]int),
	}
}

// Reset initializes the cursor for a memepad to zero. Called when a
// memepad starts purchasing.
func (a *Allocator) Reset(memePadName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cursors[memePadName] = 0
}

// Next returns the wallet the cursor currently points at. Group
// membership is fetched fresh on every call; the cursor wraps modulo
// the current group size. The cursor is NOT advanced — call Advance
// only after a dispatch attempt succeeded.
func (a *Allocator) Next(ctx context.Context, memePadName, group string) (*domain.Wallet, error) {
	wallets, err := a.store.ListByGroup(ctx, a.chain, group)
	if err != nil {
		return nil, fmt.Errorf("list wallet group %s: %w", group, err)
	}
	if len(wallets) == 0 {
		return nil, ErrEmptyGroup
	}

	a.mu.Lock()
	index := a.cursors[memePadName] % len(wallets)
	a.mu.Unlock()

	return wallets[index], nil
}

// Advance moves the memepad's cursor forward by one.
func (a *Allocator) Advance(memePadName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cursors[memePadName]++
}

// Cursor returns the current cursor value for a memepad.
func (a *Allocator) Cursor(memePadName string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursors[memePadName]
}
