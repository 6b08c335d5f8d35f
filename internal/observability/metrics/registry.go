// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track requests to the liveness endpoint
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Relay metrics track the change-detection pipeline
var (
	// CycleRunsTotal counts cycles by status: success, degraded, failure
	CycleRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_cycle_runs_total",
			Help: "Total number of relay cycles by status",
		},
		[]string{"status"},
	)

	// CycleDuration measures one full cycle
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_cycle_duration_seconds",
			Help:    "Time taken by one relay cycle",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	// ItemsTotal counts source items by what happened to them
	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_items_total",
			Help: "Total number of source items processed by outcome",
		},
		[]string{"outcome"},
	)

	// StoreRecords tracks the number of records in the dedup store
	StoreRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_store_records",
			Help: "Number of records in the dedup store after the last count",
		},
	)

	// RetentionDeletedTotal counts records removed by retention
	RetentionDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_retention_deleted_total",
			Help: "Total number of dedup records deleted by retention",
		},
	)

	// SummaryFetchAttemptsTotal counts summary fetches by result
	SummaryFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summary_fetch_attempts_total",
			Help: "Total number of item summary fetch attempts",
		},
		[]string{"result"}, // result: success, failure
	)

	// SummaryFetchDuration measures time to fetch an item summary
	SummaryFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "summary_fetch_duration_seconds",
			Help:    "Time taken to fetch an item summary",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)
)

// Store metrics track dedup store performance
var (
	// StoreOperationDuration measures dedup store operations
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Dedup store operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"operation", "status"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state by breaker name (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
