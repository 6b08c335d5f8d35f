package entity

import (
	"net/url"
	"strings"
	"time"
)

// maxURLLength bounds item links accepted from the source page.
const maxURLLength = 2048

// SourceItem is one entry observed on the source page during a single poll.
// It is never persisted directly; a SentRecord is derived from it once the
// item has been delivered or baselined.
type SourceItem struct {
	// ID is the stable identifier of the item, derived from its link path.
	ID string
	// Title is the display title.
	Title string
	// Link is the absolute URL of the item. Empty when the source did not
	// expose a resolvable link.
	Link string
	// Summary is an optional short description. Empty means "no summary".
	Summary string
}

// Validate reports whether the item carries enough information to be relayed.
// Items without an identifier or an absolute http(s) link are malformed.
func (i *SourceItem) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return &ValidationError{Field: "id", Message: "item has no identifier"}
	}
	if i.Link == "" {
		return &ValidationError{Field: "link", Message: "item has no resolvable link"}
	}
	if len(i.Link) > maxURLLength {
		return &ValidationError{Field: "link", Message: "link is too long"}
	}
	u, err := url.Parse(i.Link)
	if err != nil {
		return &ValidationError{Field: "link", Message: "link is not a valid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "link", Message: "link must use http or https scheme"}
	}
	if u.Host == "" {
		return &ValidationError{Field: "link", Message: "link must be absolute"}
	}
	return nil
}

// SentRecord marks an item as already delivered (or baselined at bootstrap).
// Records are immutable once stored and are removed only by retention.
type SentRecord struct {
	PostID string
	Title  string
	Link   string
	SentAt time.Time
}

// NewSentRecord builds the record stored for item at the given instant.
// The timestamp is normalized to UTC.
func NewSentRecord(item SourceItem, at time.Time) *SentRecord {
	return &SentRecord{
		PostID: item.ID,
		Title:  item.Title,
		Link:   item.Link,
		SentAt: at.UTC(),
	}
}
