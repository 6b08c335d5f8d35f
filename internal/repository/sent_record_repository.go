// Package repository defines the persistence contracts used by the relay core.
package repository

import (
	"context"
	"errors"

	"newsrelay/internal/domain/entity"
)

// ErrStoreUnavailable indicates that the dedup store could not be reached
// after the backend-level retries were exhausted.
var ErrStoreUnavailable = errors.New("dedup store unavailable")

// SentRecordRepository is the dedup store: the set of item identifiers that
// have already been delivered (or baselined), keyed by post_id.
//
// Every backend implements the same four operations; the choice of backend is
// made once at startup and never inspected by the relay logic.
type SentRecordRepository interface {
	// Exists reports whether a record with postID is stored.
	Exists(ctx context.Context, postID string) (bool, error)

	// Insert stores rec unless a record with the same PostID already exists.
	// It returns true only when a new record was created. Inserting an
	// existing key is a no-op, never an error.
	Insert(ctx context.Context, rec *entity.SentRecord) (bool, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// RetainLatest deletes every record except the limit most recent ones,
	// ordered by SentAt and then by insertion order (newest wins), and
	// returns the number of deleted records.
	RetainLatest(ctx context.Context, limit int) (int64, error)
}

// Migrator is implemented by backends that need a schema before use.
// Migrate must be idempotent.
type Migrator interface {
	Migrate(ctx context.Context) error
}
