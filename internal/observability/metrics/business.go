package metrics

import (
	"time"
)

// Item outcomes recorded by RecordItem.
const (
	OutcomeSent         = "sent"
	OutcomeDuplicate    = "duplicate"
	OutcomeMalformed    = "malformed"
	OutcomeLookupFailed = "lookup_failed"
	OutcomeNotifyFailed = "notify_failed"
	OutcomeInsertFailed = "insert_failed"
	OutcomeBaselined    = "baselined"
)

// RecordCycle records the status and duration of one relay cycle.
// Status should be "success", "degraded" or "failure".
func RecordCycle(status string, duration time.Duration) {
	CycleRunsTotal.WithLabelValues(status).Inc()
	CycleDuration.Observe(duration.Seconds())
}

// RecordItem counts one source item under the given outcome.
func RecordItem(outcome string) {
	ItemsTotal.WithLabelValues(outcome).Inc()
}

// UpdateStoreRecords sets the last observed dedup store size.
func UpdateStoreRecords(count int64) {
	StoreRecords.Set(float64(count))
}

// RecordRetention records how many records a retention pass deleted.
func RecordRetention(deleted int64) {
	if deleted > 0 {
		RetentionDeletedTotal.Add(float64(deleted))
	}
}

// RecordSummaryFetch records a summary fetch attempt.
func RecordSummaryFetch(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	SummaryFetchAttemptsTotal.WithLabelValues(result).Inc()
	SummaryFetchDuration.Observe(duration.Seconds())
}

// RecordStoreOperation records the duration of a dedup store operation.
// Operation is the store method name (e.g. "exists", "insert").
func RecordStoreOperation(operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StoreOperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// SetBreakerState records the state of the named circuit breaker.
func SetBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
