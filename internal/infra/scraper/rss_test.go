package scraper_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newsrelay/internal/infra/scraper"
)

func TestRSSExtractor_FetchLatest_Success(t *testing.T) {
	// モックRSSフィードを提供するHTTPサーバー
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <item>
      <title>Article 1</title>
      <link>https://example.com/news/article1</link>
      <description><![CDATA[<p>Patch notes <b>today</b></p>]]></description>
    </item>
    <item>
      <title>Article 2</title>
      <link>/news/article2</link>
      <description>Description 2</description>
    </item>
    <item>
      <title>Article 3</title>
      <link>https://example.com/news/article3</link>
    </item>
  </channel>
</rss>`
		w.Header().Set("Content-Type", "application/rss+xml")
		if _, err := w.Write([]byte(rss)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	extractor := scraper.NewRSSExtractor(client, scraper.Config{
		SourceURL: server.URL,
		BaseURL:   "https://example.com",
		MaxItems:  2,
	})

	items, err := extractor.FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("FetchLatest() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items length = %d, want 2", len(items))
	}
	if items[0].ID != "/news/article1" {
		t.Errorf("items[0].ID = %q", items[0].ID)
	}
	if items[0].Summary != "Patch notes today" {
		t.Errorf("items[0].Summary = %q, want markup stripped", items[0].Summary)
	}
	if items[1].Link != "https://example.com/news/article2" {
		t.Errorf("items[1].Link = %q, want resolved link", items[1].Link)
	}
}

func TestRSSExtractor_FetchLatest_EmptyFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>x</title></channel></rss>`))
	}))
	defer server.Close()

	extractor := scraper.NewRSSExtractor(http.DefaultClient, scraper.Config{SourceURL: server.URL})
	_, err := extractor.FetchLatest(context.Background())
	if !errors.Is(err, scraper.ErrNoItems) {
		t.Fatalf("FetchLatest() error = %v, want ErrNoItems", err)
	}
}

func TestRSSExtractor_FetchLatest_InvalidXML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not a feed`))
	}))
	defer server.Close()

	extractor := scraper.NewRSSExtractor(http.DefaultClient, scraper.Config{SourceURL: server.URL})
	if _, err := extractor.FetchLatest(context.Background()); err == nil {
		t.Fatal("FetchLatest() expected error for invalid feed")
	}
}
