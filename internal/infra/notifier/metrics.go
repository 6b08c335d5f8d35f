package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// notificationSentTotal tracks delivery results.
	notificationSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_sent_total",
			Help: "Total number of webhook notifications by result",
		},
		[]string{"status"}, // success|rate_limited|client_error|server_error|unexpected_status|transport_error|disabled
	)

	// notificationDuration tracks webhook round-trip time.
	notificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notification_duration_seconds",
			Help:    "Webhook notification duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		},
	)
)
