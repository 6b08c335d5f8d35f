// Package fetcher fetches an item's page and extracts a short plain-text
// summary with the Readability algorithm.
package fetcher

import "errors"

var (
	ErrInvalidURL        = errors.New("invalid URL")
	ErrPrivateIP         = errors.New("URL resolves to a private address")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrBodyTooLarge      = errors.New("response body too large")
	ErrTimeout           = errors.New("summary fetch timed out")
	ErrReadabilityFailed = errors.New("readability extraction failed")
)
