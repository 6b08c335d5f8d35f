package worker

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"newsrelay/internal/pkg/config"
)

// WorkerConfig holds the scheduling and server settings of the relay worker.
//
// All fields have defaults; the loader replaces any invalid value with its
// default, so a loaded WorkerConfig always passes Validate.
type WorkerConfig struct {
	// PollInterval is the delay between two cycles.
	// Default: 300 seconds
	PollInterval time.Duration

	// PollSchedule is an optional cron expression (or "@every" descriptor)
	// that replaces PollInterval when set.
	PollSchedule string

	// FailureThreshold is the number of consecutive failed cycles that puts
	// the scheduler into cooldown.
	// Range: 1-100, default 5
	FailureThreshold int

	// CooldownPeriod is the pause taken once the threshold is reached.
	// Default: 60 seconds
	CooldownPeriod time.Duration

	// CycleTimeout bounds one cycle. A shutdown signal does not cut a cycle
	// short; this timeout does.
	// Default: 5 minutes
	CycleTimeout time.Duration

	// HealthPort serves the liveness endpoint.
	// Default: 5000
	HealthPort int

	// MetricsPort serves /metrics. 0 disables the metrics server.
	// Default: 9090
	MetricsPort int
}

// DefaultConfig returns the default worker settings.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval:     300 * time.Second,
		FailureThreshold: 5,
		CooldownPeriod:   60 * time.Second,
		CycleTimeout:     5 * time.Minute,
		HealthPort:       5000,
		MetricsPort:      9090,
	}
}

// Validate checks every field and reports all problems at once.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateDuration(c.PollInterval, time.Second, 24*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("poll interval: %w", err))
	}
	if c.PollSchedule != "" {
		if err := config.ValidateCronSchedule(c.PollSchedule); err != nil {
			errs = append(errs, fmt.Errorf("poll schedule: %w", err))
		}
	}
	if err := config.ValidateIntRange(c.FailureThreshold, 1, 100); err != nil {
		errs = append(errs, fmt.Errorf("failure threshold: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.CooldownPeriod); err != nil {
		errs = append(errs, fmt.Errorf("cooldown period: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.CycleTimeout); err != nil {
		errs = append(errs, fmt.Errorf("cycle timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if c.MetricsPort != 0 {
		if err := config.ValidateIntRange(c.MetricsPort, 1, 65535); err != nil {
			errs = append(errs, fmt.Errorf("metrics port: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfig reads the worker settings through l. Invalid values fall back
// to their defaults.
//
// Environment variables:
//   - POLL_INTERVAL: duration or seconds, 1s-24h (default: 300)
//   - POLL_SCHEDULE: cron expression (default: unset)
//   - FAILURE_THRESHOLD: integer 1-100 (default: 5)
//   - COOLDOWN_PERIOD: duration (default: 60s)
//   - CYCLE_TIMEOUT: duration, 10s-1h (default: 5m)
//   - PORT: liveness port (default: 5000)
//   - METRICS_PORT: metrics port, 0 disables (default: 9090)
func LoadConfig(l *config.Loader) WorkerConfig {
	cfg := DefaultConfig()

	cfg.PollInterval = l.Duration("POLL_INTERVAL", cfg.PollInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, 24*time.Hour)
	})
	cfg.PollSchedule = l.StringWith("POLL_SCHEDULE", cfg.PollSchedule, config.ValidateCronSchedule)
	cfg.FailureThreshold = l.Int("FAILURE_THRESHOLD", cfg.FailureThreshold, func(v int) error {
		return config.ValidateIntRange(v, 1, 100)
	})
	cfg.CooldownPeriod = l.Duration("COOLDOWN_PERIOD", cfg.CooldownPeriod, config.ValidatePositiveDuration)
	cfg.CycleTimeout = l.Duration("CYCLE_TIMEOUT", cfg.CycleTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 10*time.Second, time.Hour)
	})
	cfg.HealthPort = l.Int("PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1, 65535)
	})
	cfg.MetricsPort = l.Int("METRICS_PORT", cfg.MetricsPort, func(v int) error {
		return config.ValidateIntRange(v, 0, 65535)
	})
	return cfg
}

// Schedule returns the cron schedule that drives the poll loop.
func (c *WorkerConfig) Schedule() (cron.Schedule, error) {
	if c.PollSchedule != "" {
		s, err := cron.ParseStandard(c.PollSchedule)
		if err != nil {
			return nil, fmt.Errorf("parse poll schedule: %w", err)
		}
		return s, nil
	}
	if c.PollInterval < time.Second {
		return nil, fmt.Errorf("poll interval %v is below one second", c.PollInterval)
	}
	return cron.Every(c.PollInterval), nil
}
