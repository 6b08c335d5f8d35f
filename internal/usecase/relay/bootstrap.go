package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"newsrelay/internal/domain/entity"
	"newsrelay/internal/observability/logging"
	"newsrelay/internal/observability/metrics"
	"newsrelay/internal/repository"
)

// Bootstrapper seeds an empty dedup store with the items currently visible
// on the source, without notifying them.
type Bootstrapper struct {
	store     repository.SentRecordRepository
	extractor Extractor
	now       func() time.Time

	// seeding is set once an attempt has decided the store needs a baseline.
	// A later attempt then finishes the baseline even though Count is no
	// longer zero.
	seeding bool
}

func NewBootstrapper(store repository.SentRecordRepository, extractor Extractor) *Bootstrapper {
	return &Bootstrapper{store: store, extractor: extractor, now: time.Now}
}

// Run baselines the store if it is empty and returns the number of records
// inserted. A store with history is left untouched.
func (b *Bootstrapper) Run(ctx context.Context) (int, error) {
	logger := logging.FromContext(ctx)

	if !b.seeding {
		n, err := b.store.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("count records: %w", err)
		}
		metrics.UpdateStoreRecords(n)
		if n > 0 {
			logger.Info("dedup store has history, skipping bootstrap", slog.Int64("records", n))
			return 0, nil
		}
		b.seeding = true
	}

	items, err := b.extractor.FetchLatest(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	inserted := 0
	for i := range items {
		item := items[i]
		if err := item.Validate(); err != nil {
			logger.Warn("skipping malformed item during bootstrap",
				slog.String("title", item.Title),
				slog.Any("error", errors.Join(ErrMalformedItem, err)))
			metrics.RecordItem(metrics.OutcomeMalformed)
			continue
		}
		ok, err := b.store.Insert(ctx, entity.NewSentRecord(item, b.now()))
		if err != nil {
			return inserted, fmt.Errorf("baseline %s: %w", item.ID, err)
		}
		if ok {
			inserted++
			metrics.RecordItem(metrics.OutcomeBaselined)
		}
	}
	b.seeding = false

	logger.Info("bootstrap completed", slog.Int("baselined", inserted), slog.Int("items", len(items)))
	return inserted, nil
}
