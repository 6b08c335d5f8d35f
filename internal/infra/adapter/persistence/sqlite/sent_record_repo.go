package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"newsrelay/internal/domain/entity"
	"newsrelay/internal/infra/db"
)

// sentAtLayout is fixed width so that lexical order equals time order.
const sentAtLayout = "2006-01-02T15:04:05.000000000Z"

// SentRecordRepo is the sqlite dedup store. Ties on sent_at are broken by rowid.
type SentRecordRepo struct{ db *sql.DB }

func NewSentRecordRepo(db *sql.DB) *SentRecordRepo {
	return &SentRecordRepo{db: db}
}

func (repo *SentRecordRepo) Migrate(ctx context.Context) error {
	return db.MigrateSQLite(ctx, repo.db)
}

func (repo *SentRecordRepo) Exists(ctx context.Context, postID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM sent_news WHERE post_id = ?)`
	var existsFlag bool
	if err := repo.db.QueryRowContext(ctx, query, postID).Scan(&existsFlag); err != nil {
		return false, fmt.Errorf("Exists: QueryRowContext: %w", err)
	}
	return existsFlag, nil
}

func (repo *SentRecordRepo) Insert(ctx context.Context, rec *entity.SentRecord) (bool, error) {
	const query = `
INSERT INTO sent_news (post_id, title, link, sent_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(post_id) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, query,
		rec.PostID, rec.Title, rec.Link, rec.SentAt.UTC().Format(sentAtLayout))
	if err != nil {
		return false, fmt.Errorf("Insert: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Insert: RowsAffected: %w", err)
	}
	return n == 1, nil
}

func (repo *SentRecordRepo) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM sent_news`
	var n int64
	if err := repo.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: QueryRowContext: %w", err)
	}
	return n, nil
}

func (repo *SentRecordRepo) RetainLatest(ctx context.Context, limit int) (int64, error) {
	if limit < 0 {
		return 0, fmt.Errorf("RetainLatest: negative limit %d", limit)
	}
	const query = `
DELETE FROM sent_news
WHERE post_id NOT IN (
    SELECT post_id FROM sent_news
    ORDER BY sent_at DESC, rowid DESC
    LIMIT ?
)`
	res, err := repo.db.ExecContext(ctx, query, limit)
	if err != nil {
		return 0, fmt.Errorf("RetainLatest: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("RetainLatest: RowsAffected: %w", err)
	}
	return n, nil
}
