// Package relay implements the change-detection pipeline: fetch the current
// source items, notify the ones not yet in the dedup store, record them, and
// keep the store bounded.
package relay

import (
	"context"

	"newsrelay/internal/domain/entity"
)

// Extractor returns the items currently visible on the source, most recent
// first, at most a fixed number of them. It fails as a whole: a nil error
// always comes with the complete list.
type Extractor interface {
	FetchLatest(ctx context.Context) ([]entity.SourceItem, error)
}

// Notifier delivers one notification. A nil error means the sink accepted it.
type Notifier interface {
	NotifyItem(ctx context.Context, item *entity.SourceItem) error
}

// SummaryFetcher returns a short plain-text description of the page at url.
type SummaryFetcher interface {
	FetchSummary(ctx context.Context, url string) (string, error)
}
