// Package circuitbreaker wraps github.com/sony/gobreaker for the relay's three
// outbound dependencies: the source page, item pages fetched for summaries,
// and the dedup store.
package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"newsrelay/internal/observability/metrics"
)

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name labels logs and the circuit_breaker_state metric
	Name string

	// MaxRequests is the number of trial calls allowed while half-open
	MaxRequests uint32

	// Interval clears the closed-state counts; zero never clears them
	Interval time.Duration

	// Timeout is how long the breaker stays open
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the breaker.
	// 1.0 means every counted call failed.
	FailureThreshold float64

	// MinRequests is the number of calls needed before the ratio is checked
	MinRequests uint32
}

// SourceFetchConfig guards the page or feed request made once per cycle.
// Cycles are minutes apart, so the open state only has to outlast a few of them.
func SourceFetchConfig() Config {
	return Config{
		Name:             "source-fetch",
		MaxRequests:      1,
		Interval:         30 * time.Minute,
		Timeout:          10 * time.Minute,
		FailureThreshold: 1.0,
		MinRequests:      3,
	}
}

// SummaryFetchConfig guards item page requests. A failing item host only
// costs the summary, so the breaker trips on a ratio rather than a streak.
func SummaryFetchConfig() Config {
	return Config{
		Name:             "summary-fetch",
		MaxRequests:      3,
		Interval:         10 * time.Minute,
		Timeout:          5 * time.Minute,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// StoreConfig guards dedup store operations.
// Opens after 5 consecutive failures, 30 second timeout.
func StoreConfig() Config {
	return Config{
		Name:             "dedup-store",
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 1.0,
		MinRequests:      5,
	}
}

type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
}

// New creates a breaker. Context cancellation is not counted as a failure of
// the dependency, since it comes from our own shutdown or cycle timeout.
func New(cfg Config) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			metrics.SetBreakerState(name, int(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	metrics.SetBreakerState(cfg.Name, int(gobreaker.StateClosed))
	return &CircuitBreaker{breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Run calls fn through the breaker. While open it returns
// gobreaker.ErrOpenState without calling fn.
func (cb *CircuitBreaker) Run(fn func() error) error {
	_, err := cb.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Call runs fn through cb and returns its typed result.
func Call[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var out T
	err := cb.Run(func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

// IsRejection reports whether err came from the breaker refusing the call
// rather than from the wrapped function.
func IsRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
