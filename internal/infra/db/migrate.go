package db

import (
	"context"
	"database/sql"
	"fmt"
)

// MigrateUp creates the postgres dedup table and upgrades tables created
// before the insertion sequence column existed.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS sent_news (
    post_id TEXT PRIMARY KEY,
    title   TEXT NOT NULL,
    link    TEXT NOT NULL,
    sent_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    seq     BIGSERIAL
)`); err != nil {
		return fmt.Errorf("create sent_news: %w", err)
	}

	stmts := []string{
		// Tables created by earlier deployments have no seq column.
		`ALTER TABLE sent_news ADD COLUMN IF NOT EXISTS seq BIGSERIAL`,
		// Older tables stored sent_at without a zone. Existing values are read
		// in the session time zone; a no-op on current tables.
		`ALTER TABLE sent_news ALTER COLUMN sent_at TYPE TIMESTAMPTZ`,
		`ALTER TABLE sent_news ALTER COLUMN sent_at SET DEFAULT now()`,
		// Retention orders by (sent_at, seq) newest first.
		`CREATE INDEX IF NOT EXISTS idx_sent_news_sent_at ON sent_news(sent_at DESC, seq DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sent_news: %w", err)
		}
	}
	return nil
}

// MigrateSQLite creates the sqlite dedup table. The implicit rowid serves as
// the insertion sequence. The sent_at default is padded to nanoseconds so it
// sorts as text alongside values written by the repository.
func MigrateSQLite(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS sent_news (
    post_id TEXT PRIMARY KEY,
    title   TEXT NOT NULL,
    link    TEXT NOT NULL,
    sent_at TEXT NOT NULL DEFAULT (
        strftime('%Y-%m-%dT%H:%M:%S', 'now') || '.' || substr(strftime('%f', 'now'), 4) || '000000Z'
    )
)`); err != nil {
		return fmt.Errorf("create sent_news: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_sent_news_sent_at ON sent_news(sent_at)`); err != nil {
		return fmt.Errorf("migrate sent_news: %w", err)
	}
	return nil
}
