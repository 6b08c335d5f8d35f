package relay

import (
	"context"
	"fmt"

	"newsrelay/internal/observability/metrics"
	"newsrelay/internal/repository"
)

// DefaultRetentionLimit is the number of records kept after a trim.
const DefaultRetentionLimit = 100

// RetentionManager keeps the dedup store at or below a fixed size. It is the
// only component that deletes records.
type RetentionManager struct {
	store repository.SentRecordRepository
	limit int
}

func NewRetentionManager(store repository.SentRecordRepository, limit int) *RetentionManager {
	if limit <= 0 {
		limit = DefaultRetentionLimit
	}
	return &RetentionManager{store: store, limit: limit}
}

// Enforce deletes the oldest records beyond the limit and returns how many
// were deleted. It does nothing when the store is already within the limit.
func (r *RetentionManager) Enforce(ctx context.Context) (int64, error) {
	n, err := r.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	if n <= int64(r.limit) {
		metrics.UpdateStoreRecords(n)
		return 0, nil
	}

	deleted, err := r.store.RetainLatest(ctx, r.limit)
	if err != nil {
		return 0, fmt.Errorf("retain latest %d: %w", r.limit, err)
	}
	metrics.RecordRetention(deleted)
	metrics.UpdateStoreRecords(n - deleted)
	return deleted, nil
}
