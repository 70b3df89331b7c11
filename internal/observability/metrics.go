// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	TokensSeen     prometheus.Counter
	TradeEvents    *prometheus.CounterVec
	FeedDisconnect prometheus.Counter

	// Acquisition metrics
	BuysDispatched *prometheus.CounterVec
	BuysMissed     *prometheus.CounterVec
	RuleMatches    prometheus.Counter
	ActiveMemePads prometheus.Gauge

	// Tracking metrics
	TrackedTokens   prometheus.Gauge
	TrackingPasses  prometheus.Counter
	PositionsPruned prometheus.Counter

	// Liquidation metrics
	SellsDispatched prometheus.Counter
	SellsFailed     prometheus.Counter

	// Broadcast metrics
	ConnectedClients prometheus.Gauge

	// Latency metrics
	DispatchLatency *prometheus.HistogramVec
	RPCCallLatency  *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "memepad_engine"
	}

	return &Metrics{
		// Feed metrics
		TokensSeen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "tokens_seen_total",
			Help:      "Total number of token launch events received",
		}),
		TradeEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "trade_events_total",
			Help:      "Total number of trade events received by side",
		}, []string{"side"}),
		FeedDisconnect: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "disconnects_total",
			Help:      "Total number of feed connection losses",
		}),

		// Acquisition metrics
		BuysDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acquisition",
			Name:      "buys_dispatched_total",
			Help:      "Total number of buy orders that landed, by memepad",
		}, []string{"memepad"}),
		BuysMissed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acquisition",
			Name:      "buys_missed_total",
			Help:      "Total number of buy attempts that did not land, by reason",
		}, []string{"reason"}),
		RuleMatches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acquisition",
			Name:      "rule_matches_total",
			Help:      "Total number of token names that matched a rule",
		}),
		ActiveMemePads: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "acquisition",
			Name:      "active_memepads",
			Help:      "Number of memepads currently purchasing",
		}),

		// Tracking metrics
		TrackedTokens: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracking",
			Name:      "tracked_tokens",
			Help:      "Number of tokens with live trade subscriptions",
		}),
		TrackingPasses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracking",
			Name:      "passes_total",
			Help:      "Total number of position snapshot passes",
		}),
		PositionsPruned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracking",
			Name:      "positions_pruned_total",
			Help:      "Total number of positions removed as unresolvable",
		}),

		// Liquidation metrics
		SellsDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidation",
			Name:      "sells_dispatched_total",
			Help:      "Total number of sell orders that landed",
		}),
		SellsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidation",
			Name:      "sells_failed_total",
			Help:      "Total number of sell orders that did not land",
		}),

		// Broadcast metrics
		ConnectedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "connected_clients",
			Help:      "Number of connected UI clients",
		}),

		// Latency metrics
		DispatchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "latency_seconds",
			Help:      "Trade dispatch round-trip latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
