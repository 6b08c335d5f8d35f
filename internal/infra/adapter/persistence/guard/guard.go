// Package guard decorates a dedup store backend with fixed-delay retries and
// a circuit breaker. Failures that survive both surface as
// repository.ErrStoreUnavailable.
package guard

import (
	"context"
	"fmt"
	"io"
	"time"

	"newsrelay/internal/domain/entity"
	"newsrelay/internal/observability/metrics"
	"newsrelay/internal/repository"
	"newsrelay/internal/resilience/circuitbreaker"
	"newsrelay/internal/resilience/retry"
)

// Config controls the per-operation retry budget.
type Config struct {
	Attempts int
	Delay    time.Duration
}

// DefaultConfig is 3 attempts, 2 seconds apart.
func DefaultConfig() Config {
	return Config{Attempts: 3, Delay: 2 * time.Second}
}

// Store wraps a backend. It implements repository.SentRecordRepository and
// forwards Migrate and Close when the backend supports them.
type Store struct {
	next  repository.SentRecordRepository
	retry retry.Config
	cb    *circuitbreaker.CircuitBreaker
}

func New(next repository.SentRecordRepository, cfg Config) *Store {
	rc := retry.StoreConfig(cfg.Attempts, cfg.Delay)
	// An open breaker will not close within the retry budget.
	rc.Retryable = func(err error) bool {
		return retry.IsTransient(err) && !circuitbreaker.IsRejection(err)
	}
	return &Store{
		next:  next,
		retry: rc,
		cb:    circuitbreaker.New(circuitbreaker.StoreConfig()),
	}
}

func (s *Store) Exists(ctx context.Context, postID string) (bool, error) {
	var found bool
	err := s.do(ctx, "exists", func() error {
		var err error
		found, err = s.next.Exists(ctx, postID)
		return err
	})
	return found, err
}

func (s *Store) Insert(ctx context.Context, rec *entity.SentRecord) (bool, error) {
	var inserted bool
	err := s.do(ctx, "insert", func() error {
		var err error
		inserted, err = s.next.Insert(ctx, rec)
		return err
	})
	return inserted, err
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.do(ctx, "count", func() error {
		var err error
		n, err = s.next.Count(ctx)
		return err
	})
	return n, err
}

func (s *Store) RetainLatest(ctx context.Context, limit int) (int64, error) {
	var n int64
	err := s.do(ctx, "retain", func() error {
		var err error
		n, err = s.next.RetainLatest(ctx, limit)
		return err
	})
	return n, err
}

// Migrate runs the backend migration, if any, under the same retry budget.
func (s *Store) Migrate(ctx context.Context) error {
	m, ok := s.next.(repository.Migrator)
	if !ok {
		return nil
	}
	return s.do(ctx, "migrate", func() error { return m.Migrate(ctx) })
}

// Close closes the backend if it holds resources.
func (s *Store) Close() error {
	if c, ok := s.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Store) do(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := retry.WithBackoff(ctx, s.retry, func() error {
		return s.cb.Run(fn)
	})
	metrics.RecordStoreOperation(op, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrStoreUnavailable, err)
	}
	return nil
}
