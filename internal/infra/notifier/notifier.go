// Package notifier delivers one notification per new item to a webhook sink.
//
// The package includes a Discord webhook implementation and a no-op notifier
// for when no sink is configured.
package notifier

import (
	"context"

	"newsrelay/internal/domain/entity"
)

// Notifier sends a notification for one item.
type Notifier interface {
	// NotifyItem posts item to the sink exactly once. A nil error means the
	// sink acknowledged the post; any error means the item was not delivered.
	// Implementations never retry.
	NotifyItem(ctx context.Context, item *entity.SourceItem) error
}
