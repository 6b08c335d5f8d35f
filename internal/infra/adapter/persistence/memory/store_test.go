package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrelay/internal/domain/entity"
	"newsrelay/internal/repository"
)

var _ repository.SentRecordRepository = (*Store)(nil)

func TestStore_InsertIsIdempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	r := &entity.SentRecord{PostID: "/a", SentAt: time.Now()}

	first, err := s.Insert(ctx, r)
	require.NoError(t, err)
	second, err := s.Insert(ctx, r)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	n, _ := s.Count(ctx)
	assert.Equal(t, int64(1), n)
}

func TestStore_ConcurrentInsertSameKey(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := s.Insert(ctx, &entity.SentRecord{PostID: "/same", SentAt: time.Now()})
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

func TestStore_RetainLatest(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 105; i++ {
		_, err := s.Insert(ctx, &entity.SentRecord{PostID: fmt.Sprintf("/%03d", i), SentAt: base.Add(time.Duration(i) * time.Second)})
		require.NoError(t, err)
	}
	_, err := s.Insert(ctx, &entity.SentRecord{PostID: "/new", SentAt: base.Add(time.Hour)})
	require.NoError(t, err)

	deleted, err := s.RetainLatest(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(6), deleted)

	n, _ := s.Count(ctx)
	assert.Equal(t, int64(100), n)
	for i := 0; i < 6; i++ {
		ok, _ := s.Exists(ctx, fmt.Sprintf("/%03d", i))
		assert.False(t, ok)
	}
	ok, _ := s.Exists(ctx, "/new")
	assert.True(t, ok)
}

func TestStore_RetainLatest_TieBreak(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	same := time.Now()
	for _, id := range []string{"/x", "/y", "/z"} {
		_, _ = s.Insert(ctx, &entity.SentRecord{PostID: id, SentAt: same})
	}

	_, err := s.RetainLatest(ctx, 1)
	require.NoError(t, err)

	ok, _ := s.Exists(ctx, "/z")
	assert.True(t, ok, "newest insertion wins a tie")
	n, _ := s.Count(ctx)
	assert.Equal(t, int64(1), n)
}

func TestStore_RetainLatest_NegativeLimit(t *testing.T) {
	_, err := NewStore().RetainLatest(context.Background(), -1)
	assert.Error(t, err)
}
