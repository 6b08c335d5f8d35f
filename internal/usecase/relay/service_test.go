package relay

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bootstrappedService(t *testing.T, store *faultyStore, ext *stubExtractor, n *stubNotifier) *Service {
	t.Helper()
	svc := NewService(store, ext, n, nil, testConfig())
	_, err := svc.Bootstrap(context.Background())
	require.NoError(t, err)
	return svc
}

func TestBootstrap_EmptyStoreIsBaselinedSilently(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	ext := &stubExtractor{items: items("a", "b", "c")}
	n := &stubNotifier{}
	svc := NewService(store, ext, n, nil, testConfig())

	baselined, err := svc.Bootstrap(ctx)

	require.NoError(t, err)
	assert.Equal(t, 3, baselined)
	assert.True(t, svc.Bootstrapped())
	assert.Zero(t, n.calls())
	count, _ := store.Count(ctx)
	assert.Equal(t, int64(3), count)
	for _, id := range []string{"/blog/a", "/blog/b", "/blog/c"} {
		ok, _ := store.Exists(ctx, id)
		assert.True(t, ok, id)
	}
}

func TestBootstrap_StoreWithHistoryIsUntouched(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	require.NoError(t, seed(store, time.Now(), "old"))
	ext := &stubExtractor{items: items("a", "b")}
	svc := NewService(store, ext, &stubNotifier{}, nil, testConfig())

	baselined, err := svc.Bootstrap(ctx)

	require.NoError(t, err)
	assert.Zero(t, baselined)
	assert.Zero(t, ext.calls, "source must not be fetched")
	count, _ := store.Count(ctx)
	assert.Equal(t, int64(1), count)
}

func TestRunCycle_NotifiesOnlyNewItemsInOrder(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	require.NoError(t, seed(store, time.Now().Add(-time.Hour), "a", "b"))
	ext := &stubExtractor{items: items("b", "c", "d")}
	n := &stubNotifier{}
	svc := bootstrappedService(t, store, ext, n)

	stats, err := svc.RunCycle(ctx)

	require.NoError(t, err)
	if diff := cmp.Diff([]string{"/blog/c", "/blog/d"}, n.sent); diff != "" {
		t.Errorf("notified items mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 2, stats.Sent)
	assert.Equal(t, 2, stats.Inserted)
	assert.False(t, stats.Degraded)
	count, _ := store.Count(ctx)
	assert.Equal(t, int64(4), count)
}

func TestRunCycle_NeverRenotifiesStoredItems(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	require.NoError(t, seed(store, time.Now(), "x"))
	ext := &stubExtractor{items: items("y")}
	n := &stubNotifier{}
	svc := bootstrappedService(t, store, ext, n)

	for i := 0; i < 3; i++ {
		_, err := svc.RunCycle(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"/blog/y"}, n.sent)
}

func TestRunCycle_RetentionTrimsOldestRecords(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	ids := make([]string, 105)
	for i := range ids {
		ids[i] = fmt.Sprintf("r%03d", i)
	}
	require.NoError(t, seed(store, time.Now().Add(-24*time.Hour), ids...))
	ext := &stubExtractor{items: items("fresh")}
	svc := bootstrappedService(t, store, ext, &stubNotifier{})

	stats, err := svc.RunCycle(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.Deleted)
	count, _ := store.Count(ctx)
	assert.Equal(t, int64(100), count)
	for i := 0; i < 6; i++ {
		ok, _ := store.Exists(ctx, "/blog/"+ids[i])
		assert.False(t, ok, "oldest record %s should be trimmed", ids[i])
	}
	for _, id := range []string{"/blog/" + ids[6], "/blog/" + ids[104], "/blog/fresh"} {
		ok, _ := store.Exists(ctx, id)
		assert.True(t, ok, id)
	}
}

func TestRunCycle_NoRetentionWithoutInsert(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	ids := make([]string, 103)
	for i := range ids {
		ids[i] = fmt.Sprintf("r%03d", i)
	}
	require.NoError(t, seed(store, time.Now(), ids...))
	ext := &stubExtractor{items: items(ids[0])}
	svc := bootstrappedService(t, store, ext, &stubNotifier{})

	stats, err := svc.RunCycle(ctx)

	require.NoError(t, err)
	assert.Zero(t, stats.Deleted)
	count, _ := store.Count(ctx)
	assert.Equal(t, int64(103), count)
}

func TestRunCycle_SinkFailureLeavesItemPending(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	require.NoError(t, seed(store, time.Now(), "a"))
	ext := &stubExtractor{items: items("x")}
	n := &stubNotifier{fail: map[string]error{"/blog/x": errors.New("HTTP 500")}}
	svc := bootstrappedService(t, store, ext, n)

	stats, err := svc.RunCycle(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.NotifyFailed)
	assert.Zero(t, stats.Inserted)
	assert.False(t, stats.Degraded)
	ok, _ := store.Exists(ctx, "/blog/x")
	assert.False(t, ok)
	count, _ := store.Count(ctx)
	assert.Equal(t, int64(1), count)

	// The sink recovers: the item is delivered on the next cycle.
	n.fail = nil
	_, err = svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/blog/x"}, n.sent)
}

func TestRunCycle_InsertFailureAfterSendIsRetriedLater(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	require.NoError(t, seed(store, time.Now(), "a"))
	ext := &stubExtractor{items: items("x")}
	n := &stubNotifier{}
	svc := bootstrappedService(t, store, ext, n)

	store.failInsert = true
	stats, err := svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 1, stats.InsertFailed)
	assert.Zero(t, stats.Inserted)

	store.failInsert = false
	_, err = svc.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"/blog/x", "/blog/x"}, n.sent, "accepted at-least-once redelivery")
	ok, _ := store.Exists(ctx, "/blog/x")
	assert.True(t, ok)
}

func TestRunCycle_LookupFailureSkipsAndDegrades(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	require.NoError(t, seed(store, time.Now(), "a"))
	ext := &stubExtractor{items: items("x", "y")}
	n := &stubNotifier{}
	svc := bootstrappedService(t, store, ext, n)

	store.failExists = true
	stats, err := svc.RunCycle(ctx)

	require.NoError(t, err)
	assert.True(t, stats.Degraded)
	assert.Equal(t, "degraded", stats.Status())
	assert.Equal(t, 2, stats.LookupFailed)
	assert.Zero(t, n.calls())
}

func TestRunCycle_SourceFailureAbortsWithoutMutation(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	require.NoError(t, seed(store, time.Now(), "a"))
	ext := &stubExtractor{items: items("a")}
	n := &stubNotifier{}
	svc := bootstrappedService(t, store, ext, n)

	ext.set(nil, errors.New("dial tcp: i/o timeout"))
	_, err := svc.RunCycle(ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.Zero(t, n.calls())
	count, _ := store.Count(ctx)
	assert.Equal(t, int64(1), count)
}

func TestRunCycle_MalformedItemsAreSkipped(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	require.NoError(t, seed(store, time.Now(), "a"))
	broken := item("broken")
	broken.Link = ""
	ext := &stubExtractor{items: append(items("x"), broken)}
	n := &stubNotifier{}
	svc := bootstrappedService(t, store, ext, n)

	stats, err := svc.RunCycle(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Malformed)
	assert.False(t, stats.Degraded)
	assert.Equal(t, []string{"/blog/x"}, n.sent)
}

func TestRunCycle_DeferredBootstrap(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	ext := &stubExtractor{err: errors.New("503 Service Unavailable")}
	n := &stubNotifier{}
	svc := NewService(store, ext, n, nil, testConfig())

	_, err := svc.Bootstrap(ctx)
	require.Error(t, err)
	assert.False(t, svc.Bootstrapped())

	_, err = svc.RunCycle(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBootstrapPending))
	assert.True(t, errors.Is(err, ErrSourceUnavailable))

	ext.set(items("a", "b"), nil)
	stats, err := svc.RunCycle(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Baselined)
	assert.True(t, svc.Bootstrapped())
	assert.Zero(t, n.calls(), "baselined items are never announced")

	ext.set(items("c", "a", "b"), nil)
	_, err = svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/blog/c"}, n.sent)
}

func TestRunCycle_InterruptedBootstrapResumesSilently(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	store.failInsertAfter = 1
	ext := &stubExtractor{items: items("a", "b", "c")}
	n := &stubNotifier{}
	svc := NewService(store, ext, n, nil, testConfig())

	_, err := svc.Bootstrap(ctx)
	require.Error(t, err)
	count, _ := store.Count(ctx)
	require.Equal(t, int64(1), count)

	store.failInsertAfter = -1
	_, err = svc.RunCycle(ctx)

	require.NoError(t, err)
	assert.Zero(t, n.calls())
	count, _ = store.Count(ctx)
	assert.Equal(t, int64(3), count)
}

func TestRunCycle_SummaryEnrichment(t *testing.T) {
	ctx := context.Background()

	t.Run("summary used when available", func(t *testing.T) {
		store := newFaultyStore()
		require.NoError(t, seed(store, time.Now(), "a"))
		n := &stubNotifier{}
		summaries := &stubSummaries{summary: "Balance changes."}
		svc := NewService(store, &stubExtractor{items: items("x")}, n, summaries, testConfig())
		_, err := svc.Bootstrap(ctx)
		require.NoError(t, err)

		_, err = svc.RunCycle(ctx)

		require.NoError(t, err)
		require.Len(t, n.received, 1)
		assert.Equal(t, "Balance changes.", n.received[0].Summary)
		assert.Equal(t, []string{"https://forum.example.com/blog/x"}, summaries.urls)
	})

	t.Run("failure falls back to empty summary", func(t *testing.T) {
		store := newFaultyStore()
		require.NoError(t, seed(store, time.Now(), "a"))
		n := &stubNotifier{}
		summaries := &stubSummaries{err: errors.New("HTTP 404")}
		svc := NewService(store, &stubExtractor{items: items("x")}, n, summaries, testConfig())
		_, err := svc.Bootstrap(ctx)
		require.NoError(t, err)

		_, err = svc.RunCycle(ctx)

		require.NoError(t, err)
		require.Len(t, n.received, 1)
		assert.Empty(t, n.received[0].Summary)
		assert.Equal(t, []string{"/blog/x"}, n.sent)
	})
}

func TestRunCycle_RetentionFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	require.NoError(t, seed(store, time.Now(), "a"))
	svc := bootstrappedService(t, store, &stubExtractor{items: items("x")}, &stubNotifier{})

	store.failCount = true
	stats, err := svc.RunCycle(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
	assert.Zero(t, stats.Deleted)
}

func TestRunCycle_StopsWhenContextDone(t *testing.T) {
	store := newFaultyStore()
	require.NoError(t, seed(store, time.Now(), "a"))
	n := &stubNotifier{}
	svc := NewService(store, &stubExtractor{items: items("x", "y")}, n, nil,
		Config{RetentionLimit: 100, ItemDelay: time.Hour})
	_, err := svc.Bootstrap(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = svc.RunCycle(ctx)

	require.Error(t, err)
	assert.Equal(t, []string{"/blog/x"}, n.sent, "the first item is not paced")
}
