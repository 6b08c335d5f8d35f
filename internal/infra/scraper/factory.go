package scraper

import (
	"fmt"
	"net/http"
	"strings"

	"newsrelay/internal/usecase/relay"
)

// Format names accepted by NewExtractor.
const (
	FormatHTML = "html"
	FormatRSS  = "rss"
)

// NewExtractor returns the extractor for the configured source format.
// The HTTP client should carry the source fetch timeout.
func NewExtractor(format string, client *http.Client, cfg Config) (relay.Extractor, error) {
	if cfg.SourceURL == "" {
		return nil, fmt.Errorf("source URL is required")
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatHTML:
		if cfg.ItemSelector == "" {
			return nil, fmt.Errorf("html source requires an item selector")
		}
		return NewHTMLExtractor(client, cfg), nil
	case FormatRSS, "atom":
		return NewRSSExtractor(client, cfg), nil
	default:
		return nil, fmt.Errorf("unsupported source format %q", format)
	}
}
