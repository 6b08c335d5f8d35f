package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"newsrelay/internal/domain/entity"
	"newsrelay/internal/resilience/circuitbreaker"
	"newsrelay/internal/resilience/retry"
)

// HTMLExtractor reads items from an HTML listing page with a CSS selector.
// Each selected anchor becomes one item: its text is the title and its href
// the link.
type HTMLExtractor struct {
	client         *http.Client
	cfg            Config
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewHTMLExtractor creates an HTMLExtractor with the given HTTP client.
// Client timeouts bound each fetch.
func NewHTMLExtractor(client *http.Client, cfg Config) *HTMLExtractor {
	return &HTMLExtractor{
		client:         client,
		cfg:            cfg,
		circuitBreaker: circuitbreaker.New(circuitbreaker.SourceFetchConfig()),
		retryConfig:    retry.SourceFetchConfig(),
	}
}

// FetchLatest returns at most MaxItems items in page order. Any network or
// parse error fails the whole call. Anchors without a usable href are kept
// with an empty ID and Link so the caller can report them.
func (h *HTMLExtractor) FetchLatest(ctx context.Context) ([]entity.SourceItem, error) {
	var items []entity.SourceItem

	retryErr := retry.WithBackoff(ctx, h.retryConfig, func() error {
		fetched, err := circuitbreaker.Call(h.circuitBreaker, func() ([]entity.SourceItem, error) {
			return h.doFetch(ctx)
		})
		if err != nil {
			if circuitbreaker.IsRejection(err) {
				slog.Warn("source fetch circuit breaker open, request rejected",
					slog.String("service", "source-fetch"),
					slog.String("url", h.cfg.SourceURL),
					slog.String("state", h.circuitBreaker.State().String()))
			}
			return err
		}
		items = fetched
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return items, nil
}

func (h *HTMLExtractor) doFetch(ctx context.Context) ([]entity.SourceItem, error) {
	base, err := h.cfg.base()
	if err != nil {
		return nil, err
	}

	doc, err := h.fetchHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch HTML failed: %w", err)
	}

	items := extractItems(doc, h.cfg.ItemSelector, base, h.cfg.maxItems())
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: selector %q", ErrNoItems, h.cfg.ItemSelector)
	}
	return items, nil
}

// fetchHTML fetches and parses the source page.
func (h *HTMLExtractor) fetchHTML(ctx context.Context) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.SourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", resp.Status),
		}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

func extractItems(doc *goquery.Document, selector string, base *url.URL, limit int) []entity.SourceItem {
	items := make([]entity.SourceItem, 0, limit)
	doc.Find(selector).EachWithBreak(func(i int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		id, link := resolveLink(base, href)
		title := strings.Join(strings.Fields(a.Text()), " ")
		if link == "" {
			slog.Debug("anchor without usable href", slog.Int("index", i), slog.String("title", title))
		}
		items = append(items, entity.SourceItem{ID: id, Title: title, Link: link})
		return len(items) < limit
	})
	return items
}
