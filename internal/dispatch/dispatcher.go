// Package dispatch builds, signs, and submits trade transactions
// through the platform's bundling relay.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"memepad-engine/internal/crypt"
	"memepad-engine/internal/domain"
	"memepad-engine/internal/observability"
	"memepad-engine/internal/solana"
)

// DefaultTimeout bounds a single relay or bundle request.
const DefaultTimeout = 30 * time.Second

// Dispatcher submits buy and sell orders. A failed submission is a
// missed trade, not a fault: Submit methods return an empty signature
// with a nil error and the caller moves on. Only broken local state
// (an undecryptable wallet key) surfaces as an error.
type Dispatcher struct {
	relayURL  string
	bundleURL string
	feeURL    string
	client    *http.Client
	cipher    *crypt.Cipher
	metrics   *observability.Metrics
	log       *logrus.Entry
}

// Option configures Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		d.client = client
	}
}

// WithMetrics enables dispatch latency observation.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates a Dispatcher targeting the given relay, bundle
// and tip-floor endpoints.
func NewDispatcher(relayURL, bundleURL, feeURL string, cipher *crypt.Cipher, log *logrus.Entry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		relayURL:  relayURL,
		bundleURL: bundleURL,
		feeURL:    feeURL,
		client:    &http.Client{Timeout: DefaultTimeout},
		cipher:    cipher,
		log:       log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// PriorityFee fetches the current bundle tip floor in SOL. An
// unreadable quote is an error; callers must not dispatch without one.
func (d *Dispatcher) PriorityFee(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.feeURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch tip floor: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read tip floor: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("tip floor status %d: %s", resp.StatusCode, string(body))
	}

	var floors []struct {
		LandedTips95thPercentile *float64 `json:"landed_tips_95th_percentile"`
	}
	if err := json.Unmarshal(body, &floors); err != nil {
		return 0, fmt.Errorf("unmarshal tip floor: %w", err)
	}
	if len(floors) == 0 || floors[0].LandedTips95thPercentile == nil {
		return 0, fmt.Errorf("tip floor response missing percentile")
	}
	return *floors[0].LandedTips95thPercentile, nil
}

// SubmitBuy dispatches a buy of amountSol SOL for the mint. Returns
// the primary signature, or "" if the relay declined.
func (d *Dispatcher) SubmitBuy(ctx context.Context, wallet *domain.Wallet, mint string, amountSol, slippage, priorityFee float64) (string, error) {
	return d.submit(ctx, wallet, tradeRequest{
		Action:           "buy",
		Mint:             mint,
		DenominatedInSol: "true",
		Amount:           amountSol,
		Slippage:         slippage,
		PriorityFee:      priorityFee,
		Pool:             "pump",
	})
}

// SubmitSell dispatches a sell of amountTokens tokens of the mint.
// Returns the primary signature, or "" if the relay declined.
func (d *Dispatcher) SubmitSell(ctx context.Context, wallet *domain.Wallet, mint string, amountTokens, slippage, priorityFee float64) (string, error) {
	return d.submit(ctx, wallet, tradeRequest{
		Action:           "sell",
		Mint:             mint,
		DenominatedInSol: "false",
		Amount:           amountTokens,
		Slippage:         slippage,
		PriorityFee:      priorityFee,
		Pool:             "pump",
	})
}

// submit runs the full relay round trip: request unsigned transactions,
// sign locally, send the bundle.
func (d *Dispatcher) submit(ctx context.Context, wallet *domain.Wallet, trade tradeRequest) (string, error) {
	if d.metrics != nil {
		start := time.Now()
		defer func() {
			d.metrics.DispatchLatency.WithLabelValues(trade.Action).Observe(time.Since(start).Seconds())
		}()
	}

	secret, err := d.cipher.Decrypt(wallet.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("decrypt wallet key: %w", err)
	}
	keypair, err := solana.KeypairFromBase58(secret)
	if err != nil {
		return "", fmt.Errorf("parse wallet key: %w", err)
	}

	trade.PublicKey = keypair.Address()

	blobs, ok := d.requestUnsignedTransactions(ctx, trade)
	if !ok {
		return "", nil
	}

	var signed []string
	var signature string
	for i, blob := range blobs {
		tx, err := solana.ParseTransactionBase58(blob)
		if err != nil {
			d.log.WithError(err).Warn("relay returned undecodable transaction")
			return "", nil
		}
		if err := tx.Sign(keypair); err != nil {
			d.log.WithError(err).Warn("transaction has no signature slot")
			return "", nil
		}
		if i == 0 {
			signature = tx.Signature()
		}
		signed = append(signed, tx.SerializeBase58())
	}
	if len(signed) == 0 {
		return "", nil
	}

	if !d.sendBundle(ctx, signed) {
		return "", nil
	}
	return signature, nil
}

// requestUnsignedTransactions asks the relay to build the trade.
func (d *Dispatcher) requestUnsignedTransactions(ctx context.Context, trade tradeRequest) ([]string, bool) {
	payload, err := json.Marshal([]tradeRequest{trade})
	if err != nil {
		d.log.WithError(err).Warn("marshal trade request")
		return nil, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.relayURL, bytes.NewReader(payload))
	if err != nil {
		d.log.WithError(err).Warn("create relay request")
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.WithError(err).Warn("relay request failed")
		return nil, false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		d.log.WithError(err).Warn("read relay response")
		return nil, false
	}
	if resp.StatusCode != http.StatusOK {
		d.log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		}).Warn("relay declined trade")
		return nil, false
	}

	var blobs []string
	if err := json.Unmarshal(body, &blobs); err != nil {
		d.log.WithError(err).Warn("unmarshal relay response")
		return nil, false
	}
	return blobs, true
}

// sendBundle submits signed transactions to the bundle endpoint.
func (d *Dispatcher) sendBundle(ctx context.Context, transactions []string) bool {
	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "sendBundle",
		"params":  []any{transactions},
	})
	if err != nil {
		d.log.WithError(err).Warn("marshal bundle request")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.bundleURL, bytes.NewReader(payload))
	if err != nil {
		d.log.WithError(err).Warn("create bundle request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.WithError(err).Warn("bundle submission failed")
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		d.log.WithError(err).Warn("read bundle response")
		return false
	}
	if resp.StatusCode != http.StatusOK {
		d.log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		}).Warn("bundle rejected")
		return false
	}

	var rpcResp struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResp); err == nil && rpcResp.Error != nil {
		d.log.WithFields(logrus.Fields{
			"code":    rpcResp.Error.Code,
			"message": rpcResp.Error.Message,
		}).Warn("bundle rejected")
		return false
	}
	return true
}

// tradeRequest is the relay's trade-construction wire format.
type tradeRequest struct {
	PublicKey        string  `json:"publicKey"`
	Action           string  `json:"action"`
	Mint             string  `json:"mint"`
	DenominatedInSol string  `json:"denominatedInSol"`
	Amount           float64 `json:"amount"`
	Slippage         float64 `json:"slippage"`
	PriorityFee      float64 `json:"priorityFee"`
	Pool             string  `json:"pool"`
}
