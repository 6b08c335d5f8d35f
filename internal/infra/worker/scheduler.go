package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"newsrelay/internal/usecase/relay"
)

// ErrCyclePanic marks a cycle that panicked. It counts as a failed cycle.
var ErrCyclePanic = errors.New("cycle panicked")

// State is the scheduler state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCooldown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "cycle_running"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// CycleRunner runs one relay cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*relay.CycleStats, error)
}

// Clock abstracts time so tests can drive the loop without waiting.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Scheduler runs cycles one at a time on a cron schedule and backs off after
// repeated failures.
//
// After FailureThreshold consecutive failed cycles it sleeps CooldownPeriod,
// resets the counter and resumes. A clean cycle resets the counter. A
// degraded cycle leaves it unchanged.
type Scheduler struct {
	runner   CycleRunner
	schedule cron.Schedule
	clock    Clock
	cfg      WorkerConfig
	metrics  *WorkerMetrics
	logger   *slog.Logger

	state    atomic.Int32
	failures atomic.Int32
}

// NewScheduler creates a Scheduler. metrics may be nil.
func NewScheduler(runner CycleRunner, schedule cron.Schedule, cfg WorkerConfig, metrics *WorkerMetrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		schedule: schedule,
		clock:    realClock{},
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// State returns the current state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// ConsecutiveFailures returns the current failure count.
func (s *Scheduler) ConsecutiveFailures() int {
	return int(s.failures.Load())
}

// Run loops until ctx is cancelled. Cancellation interrupts any wait at once;
// a cycle already running is allowed to finish. Run returns nil on shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		slog.Int("failure_threshold", s.cfg.FailureThreshold),
		slog.Duration("cooldown", s.cfg.CooldownPeriod))

	for {
		next := s.schedule.Next(s.clock.Now())
		if !s.sleep(ctx, next.Sub(s.clock.Now())) {
			s.logger.Info("scheduler stopped")
			return nil
		}

		s.runOnce(ctx)

		if s.ConsecutiveFailures() >= s.cfg.FailureThreshold {
			if !s.cooldown(ctx) {
				s.logger.Info("scheduler stopped during cooldown")
				return nil
			}
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.setState(StateRunning)
	defer s.setState(StateIdle)

	// Shutdown must not abort a cycle mid-write.
	cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CycleTimeout)
	defer cancel()

	stats, err := s.runCycle(cycleCtx)
	switch {
	case err != nil:
		n := s.failures.Add(1)
		s.logger.Warn("cycle failed",
			slog.Int("consecutive_failures", int(n)),
			slog.Int("threshold", s.cfg.FailureThreshold))
	case stats != nil && stats.Degraded:
		s.logger.Info("cycle degraded, failure counter unchanged",
			slog.Int("consecutive_failures", s.ConsecutiveFailures()))
	default:
		s.failures.Store(0)
		if s.metrics != nil {
			s.metrics.recordLastSuccess()
		}
	}
	if s.metrics != nil {
		s.metrics.setFailures(s.ConsecutiveFailures())
	}
}

// runCycle calls the runner and turns a panic into ErrCyclePanic so the loop
// keeps running.
func (s *Scheduler) runCycle(ctx context.Context) (stats *relay.CycleStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cycle panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			stats, err = nil, fmt.Errorf("%w: %v", ErrCyclePanic, r)
		}
	}()
	return s.runner.RunCycle(ctx)
}

func (s *Scheduler) cooldown(ctx context.Context) bool {
	s.setState(StateCooldown)
	defer s.setState(StateIdle)
	if s.metrics != nil {
		s.metrics.recordCooldown()
	}
	s.logger.Warn("too many consecutive failures, cooling down",
		slog.Int("consecutive_failures", s.ConsecutiveFailures()),
		slog.Duration("cooldown", s.cfg.CooldownPeriod))

	if !s.sleep(ctx, s.cfg.CooldownPeriod) {
		return false
	}
	s.failures.Store(0)
	if s.metrics != nil {
		s.metrics.setFailures(0)
	}
	return true
}

// sleep waits for d or until ctx is done. It reports whether the full wait
// elapsed.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.clock.After(d):
		return ctx.Err() == nil
	}
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
	if s.metrics != nil {
		s.metrics.setState(st)
	}
}
