package notifier

import (
	"context"

	"newsrelay/internal/domain/entity"
)

// NoOpNotifier is used when no webhook URL is configured. Every call fails
// with ErrSinkNotConfigured so that items stay undelivered and are picked up
// once a sink is configured.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier instance.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// NotifyItem reports failure immediately without any I/O.
func (n *NoOpNotifier) NotifyItem(_ context.Context, _ *entity.SourceItem) error {
	notificationSentTotal.WithLabelValues(errorKind(ErrSinkNotConfigured)).Inc()
	return ErrSinkNotConfigured
}
