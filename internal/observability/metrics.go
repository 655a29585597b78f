package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the valuation engine.
type Metrics struct {
	// --- Refresh loop ---
	RefreshTotal    *prometheus.CounterVec // by trigger (timer/signal)
	RefreshErrors   *prometheus.CounterVec // by stage
	RefreshDuration prometheus.Histogram
	SnapshotAsOf    prometheus.Gauge // last observed index watermark

	// --- Reconciliation ---
	ReconcileRuleHits     *prometheus.CounterVec // by rule
	ReconcileHeuristic    prometheus.Counter
	ReconcileUnattributed prometheus.Counter

	// --- Drift ---
	DriftFallbacks prometheus.Counter // missing prices, targets returned
	DriftUndefined prometheus.Counter

	// --- Index queries ---
	IndexQueryDuration *prometheus.HistogramVec // by query
	IndexQueryErrors   *prometheus.CounterVec

	// --- Price feed ---
	PriceUpdates    prometheus.Counter
	FeedReconnects  prometheus.Counter
	FeedParseErrors prometheus.Counter

	// --- Invalidation bus ---
	SignalsPublished *prometheus.CounterVec // by kind
	SignalsDropped   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	queryBuckets := []float64{
		0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25,
	}

	return &Metrics{
		RefreshTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "basket_refresh_total",
			Help: "Snapshot refresh runs",
		}, []string{"trigger"}),

		RefreshErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "basket_refresh_errors_total",
			Help: "Refresh runs that failed",
		}, []string{"stage"}),

		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "basket_refresh_duration_seconds",
			Help:    "Full refresh pass duration (fetch + compute)",
			Buckets: queryBuckets,
		}),

		SnapshotAsOf: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "basket_snapshot_as_of_slot",
			Help: "Index watermark slot of the latest snapshot",
		}),

		ReconcileRuleHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "basket_reconcile_rule_hits_total",
			Help: "Order attributions by matching rule",
		}, []string{"rule"}),

		ReconcileHeuristic: promauto.NewCounter(prometheus.CounterOpts{
			Name: "basket_reconcile_heuristic_total",
			Help: "Attributions made by the single-position heuristic",
		}),

		ReconcileUnattributed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "basket_reconcile_unattributed_total",
			Help: "Orders no matching rule could attribute",
		}),

		DriftFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "basket_drift_fallback_total",
			Help: "Weight drift passes that fell back to target weights",
		}),

		DriftUndefined: promauto.NewCounter(prometheus.CounterOpts{
			Name: "basket_drift_undefined_total",
			Help: "Weight drift passes with an undefined normalization",
		}),

		IndexQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "basket_index_query_duration_seconds",
			Help:    "Off-chain index query latency",
			Buckets: queryBuckets,
		}, []string{"query"}),

		IndexQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "basket_index_query_errors_total",
			Help: "Off-chain index query failures",
		}, []string{"query"}),

		PriceUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "basket_price_updates_total",
			Help: "Ticks applied from the price feed",
		}),

		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "basket_feed_reconnects_total",
			Help: "Price feed websocket reconnects",
		}),

		FeedParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "basket_feed_parse_errors_total",
			Help: "Price feed messages that failed to parse",
		}),

		SignalsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "basket_invalidation_signals_total",
			Help: "Invalidation signals published",
		}, []string{"kind"}),

		SignalsDropped: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "basket_invalidation_dropped",
			Help: "Deliveries lost to slow subscribers",
		}),
	}
}
