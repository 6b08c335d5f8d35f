// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the relay metrics:
//   - Liveness HTTP request metrics (duration, count)
//   - Cycle and item metrics (runs, outcomes, store size, retention)
//   - Summary fetch metrics
//   - Dedup store operation latency
//
// All metrics are registered with the Prometheus default registry and exposed
// via the /metrics endpoint of the metrics server.
//
// Example usage:
//
//	start := time.Now()
//	stats, err := svc.RunCycle(ctx)
//	metrics.RecordCycle("success", time.Since(start))
//	metrics.RecordItem(metrics.OutcomeSent)
package metrics
