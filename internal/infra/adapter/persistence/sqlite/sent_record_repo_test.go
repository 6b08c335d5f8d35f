package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"newsrelay/internal/domain/entity"
	"newsrelay/internal/infra/adapter/persistence/sqlite"
	"newsrelay/internal/infra/db"
	"newsrelay/internal/repository"
)

var _ repository.SentRecordRepository = (*sqlite.SentRecordRepo)(nil)

// ─────────────────────────────────────────────
// ヘルパ：一時ファイル上のリポジトリ
// ─────────────────────────────────────────────
func newRepo(t *testing.T) *sqlite.SentRecordRepo {
	t.Helper()
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	repo := sqlite.NewSentRecordRepo(conn)
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return repo
}

func record(id string, at time.Time) *entity.SentRecord {
	return &entity.SentRecord{
		PostID: id,
		Title:  "title " + id,
		Link:   "https://example.com" + id,
		SentAt: at,
	}
}

// ─────────────────────────────────────────────
// 1. Insert / Exists
// ─────────────────────────────────────────────
func TestSentRecordRepo_InsertIsIdempotent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	inserted, err := repo.Insert(ctx, record("/blog/a", now))
	if err != nil || !inserted {
		t.Fatalf("first Insert inserted=%v err=%v", inserted, err)
	}
	inserted, err = repo.Insert(ctx, record("/blog/a", now.Add(time.Second)))
	if err != nil {
		t.Fatalf("second Insert err=%v", err)
	}
	if inserted {
		t.Fatal("second Insert reported a new record")
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count err=%v", err)
	}
	if n != 1 {
		t.Fatalf("Count want 1, got %d", n)
	}
}

func TestSentRecordRepo_Exists(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	ok, err := repo.Exists(ctx, "/blog/a")
	if err != nil || ok {
		t.Fatalf("Exists before insert ok=%v err=%v", ok, err)
	}
	if _, err := repo.Insert(ctx, record("/blog/a", time.Now())); err != nil {
		t.Fatalf("Insert err=%v", err)
	}
	ok, err = repo.Exists(ctx, "/blog/a")
	if err != nil || !ok {
		t.Fatalf("Exists after insert ok=%v err=%v", ok, err)
	}
}

// ─────────────────────────────────────────────
// 2. RetainLatest
// ─────────────────────────────────────────────
func TestSentRecordRepo_RetainLatest_KeepsNewest(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 106; i++ {
		if _, err := repo.Insert(ctx, record(fmt.Sprintf("/blog/%03d", i), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Insert %d err=%v", i, err)
		}
	}

	deleted, err := repo.RetainLatest(ctx, 100)
	if err != nil {
		t.Fatalf("RetainLatest err=%v", err)
	}
	if deleted != 6 {
		t.Fatalf("RetainLatest deleted=%d, want 6", deleted)
	}
	for i := 0; i < 6; i++ {
		if ok, _ := repo.Exists(ctx, fmt.Sprintf("/blog/%03d", i)); ok {
			t.Fatalf("oldest record %d survived retention", i)
		}
	}
	if ok, _ := repo.Exists(ctx, "/blog/105"); !ok {
		t.Fatal("newest record was deleted")
	}
}

func TestSentRecordRepo_RetainLatest_TieBreakByInsertionOrder(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	same := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"/blog/x", "/blog/y", "/blog/z"} {
		if _, err := repo.Insert(ctx, record(id, same)); err != nil {
			t.Fatalf("Insert err=%v", err)
		}
	}

	if _, err := repo.RetainLatest(ctx, 2); err != nil {
		t.Fatalf("RetainLatest err=%v", err)
	}
	if ok, _ := repo.Exists(ctx, "/blog/x"); ok {
		t.Fatal("first inserted record should be trimmed on a sent_at tie")
	}
	for _, id := range []string{"/blog/y", "/blog/z"} {
		if ok, _ := repo.Exists(ctx, id); !ok {
			t.Fatalf("%s should be retained", id)
		}
	}
}

func TestSentRecordRepo_RetainLatest_WithinLimit(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	if _, err := repo.Insert(ctx, record("/blog/a", time.Now())); err != nil {
		t.Fatalf("Insert err=%v", err)
	}
	deleted, err := repo.RetainLatest(ctx, 100)
	if err != nil || deleted != 0 {
		t.Fatalf("RetainLatest deleted=%d err=%v", deleted, err)
	}
}
