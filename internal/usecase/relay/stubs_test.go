package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"newsrelay/internal/domain/entity"
	"newsrelay/internal/infra/adapter/persistence/memory"
)

var errStoreDown = errors.New("connection refused")

type stubExtractor struct {
	mu    sync.Mutex
	items []entity.SourceItem
	err   error
	calls int
}

func (s *stubExtractor) FetchLatest(context.Context) ([]entity.SourceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]entity.SourceItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *stubExtractor) set(items []entity.SourceItem, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items, s.err = items, err
}

type stubNotifier struct {
	mu       sync.Mutex
	sent     []string
	received []entity.SourceItem
	fail     map[string]error
}

func (n *stubNotifier) NotifyItem(_ context.Context, item *entity.SourceItem) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, *item)
	if err := n.fail[item.ID]; err != nil {
		return err
	}
	n.sent = append(n.sent, item.ID)
	return nil
}

func (n *stubNotifier) calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.received)
}

// faultyStore is a memory store whose operations can be made to fail.
type faultyStore struct {
	*memory.Store
	failExists bool
	failInsert bool
	failCount  bool
	// failInsertAfter lets that many inserts succeed before failing.
	failInsertAfter int
	inserts         int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: memory.NewStore(), failInsertAfter: -1}
}

func (f *faultyStore) Exists(ctx context.Context, id string) (bool, error) {
	if f.failExists {
		return false, errStoreDown
	}
	return f.Store.Exists(ctx, id)
}

func (f *faultyStore) Insert(ctx context.Context, rec *entity.SentRecord) (bool, error) {
	f.inserts++
	if f.failInsert || (f.failInsertAfter >= 0 && f.inserts > f.failInsertAfter) {
		return false, errStoreDown
	}
	return f.Store.Insert(ctx, rec)
}

func (f *faultyStore) Count(ctx context.Context) (int64, error) {
	if f.failCount {
		return 0, errStoreDown
	}
	return f.Store.Count(ctx)
}

type stubSummaries struct {
	summary string
	err     error
	urls    []string
}

func (s *stubSummaries) FetchSummary(_ context.Context, url string) (string, error) {
	s.urls = append(s.urls, url)
	return s.summary, s.err
}

func item(id string) entity.SourceItem {
	return entity.SourceItem{
		ID:    "/blog/" + id,
		Title: "Post " + id,
		Link:  "https://forum.example.com/blog/" + id,
	}
}

func items(ids ...string) []entity.SourceItem {
	out := make([]entity.SourceItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, item(id))
	}
	return out
}

// seed inserts records for ids with strictly increasing timestamps.
func seed(store interface {
	Insert(context.Context, *entity.SentRecord) (bool, error)
}, base time.Time, ids ...string) error {
	for i, id := range ids {
		rec := entity.NewSentRecord(item(id), base.Add(time.Duration(i)*time.Second))
		if _, err := store.Insert(context.Background(), rec); err != nil {
			return fmt.Errorf("seed %s: %w", id, err)
		}
	}
	return nil
}

func testConfig() Config {
	return Config{RetentionLimit: DefaultRetentionLimit, ItemDelay: 0}
}
