package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"newsrelay/internal/pkg/config"
)

// WorkerMetrics holds the scheduler metrics and the worker's configuration
// metrics (worker_config_*).
type WorkerMetrics struct {
	*config.ConfigMetrics

	// CooldownsTotal counts cooldowns entered after repeated failures.
	CooldownsTotal prometheus.Counter

	// ConsecutiveFailures is the current consecutive-failure count.
	ConsecutiveFailures prometheus.Gauge

	// State is 0 while idle, 1 while a cycle runs and 2 during cooldown.
	State prometheus.Gauge

	// LastSuccessTimestamp is the Unix time of the last clean cycle.
	LastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics registers the worker metrics with the default registerer.
func NewWorkerMetrics() *WorkerMetrics {
	return NewWorkerMetricsWith(prometheus.DefaultRegisterer)
}

// NewWorkerMetricsWith registers the worker metrics with reg.
func NewWorkerMetricsWith(reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetricsWith(reg, "worker"),

		CooldownsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_scheduler_cooldowns_total",
			Help: "Total number of cooldowns entered after consecutive cycle failures",
		}),

		ConsecutiveFailures: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_scheduler_consecutive_failures",
			Help: "Current number of consecutive failed cycles",
		}),

		State: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_scheduler_state",
			Help: "Scheduler state: 0 idle, 1 cycle running, 2 cooldown",
		}),

		LastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_scheduler_last_success_timestamp",
			Help: "Unix timestamp of the last clean cycle",
		}),
	}
}

func (m *WorkerMetrics) setState(s State) {
	m.State.Set(float64(s))
}

func (m *WorkerMetrics) setFailures(n int) {
	m.ConsecutiveFailures.Set(float64(n))
}

func (m *WorkerMetrics) recordCooldown() {
	m.CooldownsTotal.Inc()
}

func (m *WorkerMetrics) recordLastSuccess() {
	m.LastSuccessTimestamp.SetToCurrentTime()
}
