// Package metrics defines and registers all custom Prometheus metrics for the
// trading simulator. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "simulator"

// ── Trade metrics ─────────────────────────────────────────────────────────────

// TradesExecutedTotal counts trades that committed.
// Label:
//   - side: "buy" or "sell"
var TradesExecutedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trades_executed_total",
		Help:      "Total number of buy and sell orders that committed.",
	},
	[]string{"side"},
)

// TradesRejectedTotal counts trades refused before or during the store transaction.
// Labels:
//   - side: "buy" or "sell"
//   - reason: "invalid_input", "symbol_not_recognized", "insufficient_funds", "insufficient_shares",
//     "no_such_position" or "store_error"
var TradesRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trades_rejected_total",
		Help:      "Total number of trades rejected, by side and reason.",
	},
	[]string{"side", "reason"},
)

// ── Quote metrics ─────────────────────────────────────────────────────────────

// QuoteLookupsTotal counts quote provider calls.
// Label:
//   - result: "ok" or "not_found"
var QuoteLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quote_lookups_total",
		Help:      "Total number of quote lookups, labelled by result.",
	},
	[]string{"result"},
)

// QuoteLookupDuration measures the latency of a single quote lookup.
// Label:
//   - provider: "iex" or "alpaca"
var QuoteLookupDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "quote_lookup_duration_seconds",
		Help:      "Duration of quote provider calls.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"provider"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok" or "invalid"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, labelled by result.",
	},
	[]string{"result"},
)

// ── Activity metrics ──────────────────────────────────────────────────────────

// ActivityQueueDepth tracks the number of audit entries waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ActivityQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "activity_queue_depth",
		Help:      "Current number of activity entries pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ActivityDroppedTotal counts audit entries discarded because a worker channel was full.
var ActivityDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activity_dropped_total",
		Help:      "Total number of activity entries dropped on a full queue.",
	},
)
