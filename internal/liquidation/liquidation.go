// Package liquidation sells held positions on demand.
package liquidation

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/observability"
	"memepad-engine/internal/storage"
)

// ErrSellFailed is returned when the relay declined or dropped the
// sell. Unlike missed buys, a failed exit is surfaced to the caller.
var ErrSellFailed = errors.New("sell transaction failed")

// Dispatcher submits sell orders.
type Dispatcher interface {
	PriorityFee(ctx context.Context) (float64, error)
	SubmitSell(ctx context.Context, wallet *domain.Wallet, mint string, amountTokens, slippage, priorityFee float64) (string, error)
}

// ChainReader reads token holdings.
type ChainReader interface {
	GetWalletTokenHolding(ctx context.Context, wallet, mint string) (float64, error)
}

// Executor performs sells against open positions.
type Executor struct {
	chain       domain.Chain
	memePads    storage.MemePadStore
	walletStore storage.WalletStore
	history     storage.HistoryStore
	dispatcher  Dispatcher
	reader      ChainReader
	metrics     *observability.Metrics
	log         *logrus.Entry
}

// NewExecutor creates a liquidation executor. metrics may be nil.
func NewExecutor(
	chain domain.Chain,
	memePads storage.MemePadStore,
	walletStore storage.WalletStore,
	history storage.HistoryStore,
	dispatcher Dispatcher,
	reader ChainReader,
	metrics *observability.Metrics,
	log *logrus.Entry,
) *Executor {
	return &Executor{
		chain:       chain,
		memePads:    memePads,
		walletStore: walletStore,
		history:     history,
		dispatcher:  dispatcher,
		reader:      reader,
		metrics:     metrics,
		log:         log,
	}
}

// Sell liquidates percentage percent of the wallet's holding in the
// token. A full sell removes the position from the memepad. The sell
// is recorded in history with its resolved token amount.
func (e *Executor) Sell(ctx context.Context, memePadName, walletAddress, tokenAddress string, percentage, slippage float64) (string, error) {
	if percentage <= 0 || percentage > 100 {
		return "", fmt.Errorf("%w: invalid sell percentage %f", storage.ErrInvalidInput, percentage)
	}

	wallet, err := e.walletStore.Get(ctx, e.chain, walletAddress)
	if err != nil {
		return "", fmt.Errorf("load wallet %s: %w", walletAddress, err)
	}

	priorityFee, err := e.dispatcher.PriorityFee(ctx)
	if err != nil {
		e.failed()
		return "", fmt.Errorf("priority fee: %w", err)
	}

	holding, err := e.reader.GetWalletTokenHolding(ctx, walletAddress, tokenAddress)
	if err != nil {
		e.failed()
		return "", fmt.Errorf("read holding: %w", err)
	}
	amount := holding / 100 * percentage
	if amount <= 0 {
		e.failed()
		return "", fmt.Errorf("nothing to sell for %s in %s", walletAddress, tokenAddress)
	}

	if slippage == 0 {
		slippage = domain.DefaultSlippage
	}

	signature, err := e.dispatcher.SubmitSell(ctx, wallet, tokenAddress, amount, slippage, priorityFee)
	if err != nil {
		e.failed()
		return "", fmt.Errorf("dispatch sell: %w", err)
	}
	if signature == "" {
		e.failed()
		return "", ErrSellFailed
	}

	if percentage == 100 {
		err := e.memePads.RemovePosition(ctx, e.chain, memePadName, walletAddress, tokenAddress)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			e.log.WithError(err).Warn("remove sold position")
		}
	}

	symbol := "Unknown"
	if buy, err := e.history.FindBuy(ctx, memePadName, walletAddress, tokenAddress); err == nil {
		symbol = buy.TokenSymbol
	}

	record := &domain.HistoryRecord{
		MemePadName:  memePadName,
		Wallet:       walletAddress,
		TokenAddress: tokenAddress,
		TokenSymbol:  symbol,
		Type:         domain.TradeTypeSell,
		Amount:       amount,
		Signature:    signature,
	}
	if err := e.history.Insert(ctx, record); err != nil {
		e.log.WithError(err).Error("record sell history")
	}

	if e.metrics != nil {
		e.metrics.SellsDispatched.Inc()
	}
	e.log.WithFields(logrus.Fields{
		"memepad":   memePadName,
		"wallet":    walletAddress,
		"token":     tokenAddress,
		"amount":    amount,
		"signature": signature,
	}).Info("sell dispatched")

	return signature, nil
}

func (e *Executor) failed() {
	if e.metrics != nil {
		e.metrics.SellsFailed.Inc()
	}
}
