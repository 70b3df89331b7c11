package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/observability"
)

// ClientConfig configures the feed client.
type ClientConfig struct {
	// HandshakeTimeout bounds the initial dial.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultClientConfig returns default feed client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// Client maintains a single WebSocket connection to the launch feed.
// Control messages sent before the connection opens are queued and
// flushed on connect. Inbound events are dispatched sequentially from
// one reader goroutine, so handlers observe feed order.
//
// The client does not reconnect after a drop; a dead feed means no
// further events until the process restarts.
type Client struct {
	endpoint string
	config   ClientConfig
	metrics  *observability.Metrics
	log      *logrus.Entry

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// pending holds control messages queued before the socket opened
	pending   []any
	pendingMu sync.Mutex

	demux *Demux

	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures Client.
type Option func(*Client)

// WithMetrics counts connection losses on the disconnect counter.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a feed client. The connection is established by
// Connect, not here, so subscriptions can be registered up front.
func NewClient(endpoint string, config *ClientConfig, log *logrus.Entry, opts ...Option) *Client {
	cfg := DefaultClientConfig()
	if config != nil {
		cfg = *config
	}

	c := &Client{
		endpoint: endpoint,
		config:   cfg,
		log:      log,
		demux:    NewDemux(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Demux exposes the routing layer, used by trackers to install
// per-campaign trade handlers.
func (c *Client) Demux() *Demux {
	return c.demux
}

// Connect dials the feed, flushes queued control messages, and starts
// the reader and ping goroutines.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.flushPending()

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return nil
}

// SubscribeNewTokens installs the launch handler and asks the feed for
// new-token events.
func (c *Client) SubscribeNewTokens(h NewTokenHandler) {
	c.demux.SetNewTokenHandler(h)
	c.send(controlMessage{Method: "subscribeNewToken"})
}

// UnsubscribeNewTokens stops new-token delivery.
func (c *Client) UnsubscribeNewTokens() {
	c.send(controlMessage{Method: "unsubscribeNewToken"})
	c.demux.ClearNewTokenHandler()
}

// SubscribeTokenTrades replaces the owner's tracked token set and
// subscribes the feed to trades on those tokens. Other owners'
// subscriptions are unaffected.
func (c *Client) SubscribeTokenTrades(owner string, tokens []string, h TradeHandler) {
	c.demux.SetTradeHandler(owner, tokens, h)
	if len(tokens) > 0 {
		c.send(controlMessage{Method: "subscribeAccountTrade", Keys: tokens})
	}
}

// UnsubscribeTokenTrades drops the owner's trade subscription. Tokens
// still wanted by another owner stay subscribed on the wire.
func (c *Client) UnsubscribeTokenTrades(owner string) {
	released := c.demux.RemoveTradeHandler(owner)
	if len(released) > 0 {
		c.send(controlMessage{Method: "unsubscribeTokenTrade", Keys: released})
	}
}

// Close shuts the connection down and waits for the goroutines.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

// send writes a control message, or queues it if not yet connected.
func (c *Client) send(msg any) {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()

	if conn == nil {
		c.pendingMu.Lock()
		c.pending = append(c.pending, msg)
		c.pendingMu.Unlock()
		return
	}

	c.write(msg)
}

// flushPending sends every control message queued before connect, in
// the order it was queued.
func (c *Client) flushPending() {
	c.pendingMu.Lock()
	queued := c.pending
	c.pending = nil
	c.pendingMu.Unlock()

	for _, msg := range queued {
		c.write(msg)
	}
}

func (c *Client) write(msg any) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.log.WithError(err).Warn("feed control write failed")
	}
}

// readLoop reads feed messages and dispatches them sequentially.
func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		_, message, err := conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.log.WithError(err).Error("feed connection lost")
				if c.metrics != nil {
					c.metrics.FeedDisconnect.Inc()
				}
			}
			return
		}

		c.handleMessage(message)
	}
}

// handleMessage classifies an inbound payload and routes it. Trade
// events carry a txType field; launch events carry a mint without one.
// Anything else (subscription acks, notices) is ignored.
func (c *Client) handleMessage(message []byte) {
	var probe struct {
		Mint   string `json:"mint"`
		TxType string `json:"txType"`
	}
	if err := json.Unmarshal(message, &probe); err != nil {
		c.log.WithError(err).Debug("unparseable feed message")
		return
	}

	if probe.TxType != "" {
		var ev domain.TradeEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			c.log.WithError(err).Debug("malformed trade event")
			return
		}
		c.demux.DispatchTrade(ev)
		return
	}

	if probe.Mint != "" {
		var ev domain.NewTokenEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			c.log.WithError(err).Debug("malformed token event")
			return
		}
		c.demux.DispatchNewToken(ev)
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// controlMessage is the feed's subscription wire format.
type controlMessage struct {
	Method string   `json:"method"`
	Keys   []string `json:"keys,omitempty"`
}
