package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrelay/internal/domain/entity"
	"newsrelay/internal/infra/adapter/persistence/memory"
	"newsrelay/internal/repository"
)

var _ repository.SentRecordRepository = (*Store)(nil)

// flakyRepo fails the first failN calls of every operation.
type flakyRepo struct {
	*memory.Store
	failN    int
	calls    int
	err      error
	migrated bool
}

func (f *flakyRepo) fail() error {
	f.calls++
	if f.calls <= f.failN {
		return f.err
	}
	return nil
}

func (f *flakyRepo) Exists(ctx context.Context, id string) (bool, error) {
	if err := f.fail(); err != nil {
		return false, err
	}
	return f.Store.Exists(ctx, id)
}

func (f *flakyRepo) Insert(ctx context.Context, rec *entity.SentRecord) (bool, error) {
	if err := f.fail(); err != nil {
		return false, err
	}
	return f.Store.Insert(ctx, rec)
}

func (f *flakyRepo) Migrate(context.Context) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.migrated = true
	return nil
}

func fastConfig() Config {
	return Config{Attempts: 3, Delay: time.Millisecond}
}

func TestStore_RetriesTransientFailure(t *testing.T) {
	repo := &flakyRepo{Store: memory.NewStore(), failN: 2, err: errors.New("connection reset")}
	s := New(repo, fastConfig())

	inserted, err := s.Insert(context.Background(), &entity.SentRecord{PostID: "/a", SentAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, 3, repo.calls)
}

func TestStore_ExhaustedRetriesAreUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	repo := &flakyRepo{Store: memory.NewStore(), failN: 100, err: cause}
	s := New(repo, fastConfig())

	_, err := s.Exists(context.Background(), "/a")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, repo.calls)
}

func TestStore_ContextCanceledIsNotRetried(t *testing.T) {
	repo := &flakyRepo{Store: memory.NewStore(), failN: 100, err: context.Canceled}
	s := New(repo, fastConfig())

	_, err := s.Exists(context.Background(), "/a")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, repo.calls)
}

func TestStore_OpenBreakerFailsFast(t *testing.T) {
	repo := &flakyRepo{Store: memory.NewStore(), failN: 1000, err: errors.New("down")}
	s := New(repo, Config{Attempts: 1, Delay: time.Millisecond})

	for i := 0; i < 5; i++ {
		_, _ = s.Exists(context.Background(), "/a")
	}
	before := repo.calls

	_, err := s.Exists(context.Background(), "/a")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, before, repo.calls, "backend must not be called while the breaker is open")
}

func TestStore_MigrateForwards(t *testing.T) {
	repo := &flakyRepo{Store: memory.NewStore(), failN: 1, err: errors.New("starting up")}
	s := New(repo, fastConfig())

	require.NoError(t, s.Migrate(context.Background()))
	assert.True(t, repo.migrated)
}

func TestStore_MigrateWithoutMigrator(t *testing.T) {
	s := New(memory.NewStore(), fastConfig())
	assert.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, s.Close())
}
