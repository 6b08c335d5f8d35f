package relay

import "errors"

var (
	// ErrSourceUnavailable means the source could not be fetched or parsed.
	// The cycle is aborted and counts as a failure.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedItem marks an item without a usable identifier or link.
	// The item is skipped; the cycle continues.
	ErrMalformedItem = errors.New("malformed item")

	// ErrSinkDelivery means the notifier did not deliver an item. The item
	// stays a candidate for the next cycle.
	ErrSinkDelivery = errors.New("sink delivery failed")

	// ErrBootstrapPending is returned by a cycle that could not complete the
	// first-run baseline.
	ErrBootstrapPending = errors.New("bootstrap pending")
)
