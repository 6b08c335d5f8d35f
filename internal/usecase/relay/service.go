package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"newsrelay/internal/domain/entity"
	"newsrelay/internal/observability/logging"
	"newsrelay/internal/observability/metrics"
	"newsrelay/internal/observability/tracing"
	"newsrelay/internal/repository"
)

// Config holds the cycle settings.
type Config struct {
	// RetentionLimit is the number of records kept after a cycle that
	// inserted at least one record.
	RetentionLimit int
	// ItemDelay is the minimum spacing between two notifications.
	ItemDelay time.Duration
}

// DefaultConfig returns the default cycle settings.
func DefaultConfig() Config {
	return Config{
		RetentionLimit: DefaultRetentionLimit,
		ItemDelay:      1500 * time.Millisecond,
	}
}

// CycleStats describes what one cycle did.
type CycleStats struct {
	CycleID      string
	Items        int
	Baselined    int
	Malformed    int
	Duplicates   int
	LookupFailed int
	Sent         int
	NotifyFailed int
	Inserted     int
	InsertFailed int
	Deleted      int64
	Duration     time.Duration

	// Degraded is set when the cycle completed but some item could not be
	// checked against the store. A degraded cycle is not a clean success.
	Degraded bool
}

// Status returns "success" or "degraded".
func (s *CycleStats) Status() string {
	if s.Degraded {
		return "degraded"
	}
	return "success"
}

// Service runs relay cycles against one source, one store and one sink.
// Cycles must not overlap; the scheduler runs them one at a time.
type Service struct {
	store     repository.SentRecordRepository
	extractor Extractor
	notifier  Notifier
	summaries SummaryFetcher
	bootstrap *Bootstrapper
	retention *RetentionManager
	pacer     *Pacer
	now       func() time.Time

	bootstrapped atomic.Bool
}

// NewService creates a relay Service. summaries may be nil to disable
// summary enrichment.
func NewService(
	store repository.SentRecordRepository,
	extractor Extractor,
	notifier Notifier,
	summaries SummaryFetcher,
	cfg Config,
) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
		notifier:  notifier,
		summaries: summaries,
		bootstrap: NewBootstrapper(store, extractor),
		retention: NewRetentionManager(store, cfg.RetentionLimit),
		pacer:     NewPacer(cfg.ItemDelay),
		now:       time.Now,
	}
}

// Bootstrap baselines an empty store. Once it has succeeded further calls
// are no-ops. Cycles call it themselves until it succeeds.
func (s *Service) Bootstrap(ctx context.Context) (int, error) {
	if s.bootstrapped.Load() {
		return 0, nil
	}
	n, err := s.bootstrap.Run(ctx)
	if err != nil {
		return n, err
	}
	s.bootstrapped.Store(true)
	return n, nil
}

// Bootstrapped reports whether the baseline has been established.
func (s *Service) Bootstrapped() bool {
	return s.bootstrapped.Load()
}

// RunCycle performs one fetch, detect, notify and persist pass.
//
// The returned error is non-nil only for cycle-level failures: the source
// could not be read or the baseline could not be established. Per-item
// problems are counted in the stats and logged.
func (s *Service) RunCycle(ctx context.Context) (*CycleStats, error) {
	start := time.Now()
	stats := &CycleStats{CycleID: uuid.New().String()}
	ctx = logging.WithCycle(ctx, stats.CycleID)
	logger := logging.FromContext(ctx)

	ctx, span := tracing.GetTracer().Start(ctx, "relay.cycle")
	defer span.End()
	span.SetAttributes(attribute.String("cycle_id", stats.CycleID))

	err := s.runCycle(ctx, stats)
	stats.Duration = time.Since(start)

	if err != nil {
		metrics.RecordCycle("failure", stats.Duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, "cycle failed")
		logger.Error("relay cycle failed",
			slog.Duration("duration", stats.Duration),
			slog.String("error", logging.SanitizeError(err)))
		return stats, err
	}

	metrics.RecordCycle(stats.Status(), stats.Duration)
	span.SetAttributes(
		attribute.Int("items", stats.Items),
		attribute.Int("sent", stats.Sent),
		attribute.Bool("degraded", stats.Degraded))
	logger.Info("relay cycle completed",
		slog.String("status", stats.Status()),
		slog.Int("items", stats.Items),
		slog.Int("baselined", stats.Baselined),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("malformed", stats.Malformed),
		slog.Int("lookup_failed", stats.LookupFailed),
		slog.Int("sent", stats.Sent),
		slog.Int("notify_failed", stats.NotifyFailed),
		slog.Int("inserted", stats.Inserted),
		slog.Int("insert_failed", stats.InsertFailed),
		slog.Int64("retention_deleted", stats.Deleted),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

func (s *Service) runCycle(ctx context.Context, stats *CycleStats) error {
	logger := logging.FromContext(ctx)

	if !s.bootstrapped.Load() {
		n, err := s.Bootstrap(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBootstrapPending, err)
		}
		if n > 0 {
			// The visible items were just baselined; nothing on the page is new.
			stats.Baselined = n
			return nil
		}
	}

	items, err := s.extractor.FetchLatest(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	stats.Items = len(items)

	for i := range items {
		item := &items[i]
		if err := s.processItem(ctx, item, stats); err != nil {
			return err
		}
	}

	if stats.Inserted > 0 {
		deleted, err := s.retention.Enforce(ctx)
		if err != nil {
			logger.Warn("retention skipped",
				slog.String("error", logging.SanitizeError(err)))
		}
		stats.Deleted = deleted
	}
	return nil
}

// processItem handles one item. It only returns an error when the cycle
// context is done.
func (s *Service) processItem(ctx context.Context, item *entity.SourceItem, stats *CycleStats) error {
	logger := logging.FromContext(ctx).With(slog.String("post_id", item.ID))

	if err := item.Validate(); err != nil {
		stats.Malformed++
		metrics.RecordItem(metrics.OutcomeMalformed)
		logger.Warn("skipping malformed item",
			slog.String("title", item.Title),
			slog.Any("error", errors.Join(ErrMalformedItem, err)))
		return nil
	}

	exists, err := s.store.Exists(ctx, item.ID)
	if err != nil {
		// Never notify an item whose novelty cannot be confirmed.
		stats.LookupFailed++
		stats.Degraded = true
		metrics.RecordItem(metrics.OutcomeLookupFailed)
		logger.Warn("dedup lookup failed, skipping item",
			slog.String("error", logging.SanitizeError(err)))
		return nil
	}
	if exists {
		stats.Duplicates++
		metrics.RecordItem(metrics.OutcomeDuplicate)
		return nil
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("cycle interrupted before %s: %w", item.ID, err)
	}

	s.enrich(ctx, item)

	if err := s.notifier.NotifyItem(ctx, item); err != nil {
		stats.NotifyFailed++
		metrics.RecordItem(metrics.OutcomeNotifyFailed)
		logger.Warn("item not delivered, will retry next cycle",
			slog.String("error", logging.SanitizeError(fmt.Errorf("%w: %w", ErrSinkDelivery, err))))
		return nil
	}
	stats.Sent++

	inserted, err := s.store.Insert(ctx, entity.NewSentRecord(*item, s.now()))
	if err != nil {
		// Already delivered: a later cycle may deliver it again.
		stats.InsertFailed++
		metrics.RecordItem(metrics.OutcomeInsertFailed)
		logger.Error("item delivered but not recorded",
			slog.String("url", item.Link),
			slog.String("error", logging.SanitizeError(err)))
		return nil
	}
	if inserted {
		stats.Inserted++
	}
	metrics.RecordItem(metrics.OutcomeSent)
	return nil
}

// enrich fills item.Summary when a summary fetcher is configured. Failures
// leave the summary empty so the notifier uses its fallback text.
func (s *Service) enrich(ctx context.Context, item *entity.SourceItem) {
	if s.summaries == nil || item.Summary != "" {
		return
	}
	start := time.Now()
	summary, err := s.summaries.FetchSummary(ctx, item.Link)
	metrics.RecordSummaryFetch(err == nil, time.Since(start))
	if err != nil {
		logging.FromContext(ctx).Debug("summary unavailable",
			slog.String("post_id", item.ID),
			slog.String("error", logging.SanitizeError(err)))
		return
	}
	item.Summary = summary
}
