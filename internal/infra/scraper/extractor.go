// Package scraper turns the polled source into an ordered list of items.
package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	maxBodySize     = 10 * 1024 * 1024 // 10MB
	defaultMaxItems = 5
	userAgent       = "NewsRelayBot/1.0"
)

// ErrNoItems is returned when the source parsed cleanly but yielded nothing,
// which usually means the page layout changed.
var ErrNoItems = errors.New("no items found on source")

// Config describes where and how to read the source.
type Config struct {
	// SourceURL is the page or feed that is polled.
	SourceURL string
	// BaseURL resolves relative item links. Defaults to SourceURL.
	BaseURL string
	// ItemSelector selects one anchor per item (HTML only).
	ItemSelector string
	// MaxItems bounds the result; only the first MaxItems matches are used.
	MaxItems int
}

func (c Config) maxItems() int {
	if c.MaxItems <= 0 {
		return defaultMaxItems
	}
	return c.MaxItems
}

func (c Config) base() (*url.URL, error) {
	raw := c.BaseURL
	if raw == "" {
		raw = c.SourceURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	return u, nil
}

// resolveLink makes href absolute against base and derives the item ID from
// the resulting path and query. Both are empty when href is unusable.
func resolveLink(base *url.URL, href string) (id, link string) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", ""
	}
	abs.Fragment = ""
	return abs.RequestURI(), abs.String()
}
