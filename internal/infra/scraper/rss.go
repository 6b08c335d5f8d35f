package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"newsrelay/internal/domain/entity"
	"newsrelay/internal/resilience/circuitbreaker"
	"newsrelay/internal/resilience/retry"
)

// RSSExtractor reads items from an RSS/Atom feed using gofeed.
type RSSExtractor struct {
	client         *http.Client
	cfg            Config
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewRSSExtractor creates an RSSExtractor with the given HTTP client.
func NewRSSExtractor(client *http.Client, cfg Config) *RSSExtractor {
	return &RSSExtractor{
		client:         client,
		cfg:            cfg,
		circuitBreaker: circuitbreaker.New(circuitbreaker.SourceFetchConfig()),
		retryConfig:    retry.SourceFetchConfig(),
	}
}

// FetchLatest returns at most MaxItems feed entries in feed order.
func (f *RSSExtractor) FetchLatest(ctx context.Context) ([]entity.SourceItem, error) {
	var items []entity.SourceItem

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		fetched, err := circuitbreaker.Call(f.circuitBreaker, func() ([]entity.SourceItem, error) {
			return f.doFetch(ctx)
		})
		if err != nil {
			if circuitbreaker.IsRejection(err) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("service", "source-fetch"),
					slog.String("url", f.cfg.SourceURL),
					slog.String("state", f.circuitBreaker.State().String()))
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

func (f *RSSExtractor) doFetch(ctx context.Context) ([]entity.SourceItem, error) {
	base, err := f.cfg.base()
	if err != nil {
		return nil, err
	}

	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(f.cfg.SourceURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &retry.HTTPError{StatusCode: httpErr.StatusCode, Message: httpErr.Status}
		}
		return nil, err
	}
	if len(feed.Items) == 0 {
		return nil, ErrNoItems
	}

	limit := f.cfg.maxItems()
	items := make([]entity.SourceItem, 0, limit)
	for _, it := range feed.Items {
		if len(items) == limit {
			break
		}
		id, link := resolveLink(base, it.Link)
		items = append(items, entity.SourceItem{
			ID:      id,
			Title:   strings.TrimSpace(it.Title),
			Link:    link,
			Summary: plainText(it.Description),
		})
	}
	return items, nil
}

// plainText strips markup from a feed description.
func plainText(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
