// Package observability groups the relay's logging, metrics and tracing.
//
// Subpackages:
//   - logging: slog construction, cycle-scoped loggers and secret redaction
//   - metrics: Prometheus collectors for cycles, items and store calls
//   - tracing: OpenTelemetry provider setup and the HTTP middleware
//
// Example usage:
//
//	import (
//	    "newsrelay/internal/observability/logging"
//	    "newsrelay/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started")
//
//	    metrics.RecordItem(metrics.OutcomeSent)
//	}
package observability
