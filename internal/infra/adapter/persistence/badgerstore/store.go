// Package badgerstore implements the dedup store on an embedded badger key-value
// database.
//
// Layout:
//
//	post/<post_id>                 -> JSON record
//	idx/<sent_at ns><seq>/<post_id> -> empty, ordered oldest first
package badgerstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"newsrelay/internal/domain/entity"
)

var (
	postPrefix = []byte("post/")
	idxPrefix  = []byte("idx/")
	seqKey     = []byte("meta/seq")
)

type storedRecord struct {
	Title  string    `json:"title"`
	Link   string    `json:"link"`
	SentAt time.Time `json:"sent_at"`
	Seq    uint64    `json:"seq"`
}

// Store is a badger-backed dedup store.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
}

// Open opens (creating if needed) a badger database in dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("badger path is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	seq, err := db.GetSequence(seqKey, 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open badger sequence: %w", err)
	}
	return &Store{db: db, seq: seq}, nil
}

// Close releases the sequence lease and closes the database.
func (s *Store) Close() error {
	relErr := s.seq.Release()
	if err := s.db.Close(); err != nil {
		return err
	}
	return relErr
}

func (s *Store) Exists(_ context.Context, postID string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(postKey(postID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return true, nil
}

func (s *Store) Insert(_ context.Context, rec *entity.SentRecord) (bool, error) {
	inserted := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(postKey(rec.PostID))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		seq, err := s.seq.Next()
		if err != nil {
			return err
		}
		sentAt := rec.SentAt.UTC()
		data, err := json.Marshal(storedRecord{Title: rec.Title, Link: rec.Link, SentAt: sentAt, Seq: seq})
		if err != nil {
			return fmt.Errorf("failed to marshal value: %w", err)
		}
		if err := txn.Set(postKey(rec.PostID), data); err != nil {
			return err
		}
		if err := txn.Set(indexKey(sentAt, seq, rec.PostID), nil); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}
	return inserted, nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = postPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

// RetainLatest walks the index from the oldest entry and deletes records
// until only limit remain.
func (s *Store) RetainLatest(ctx context.Context, limit int) (int64, error) {
	if limit < 0 {
		return 0, fmt.Errorf("RetainLatest: negative limit %d", limit)
	}
	total, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	excess := total - int64(limit)
	if excess <= 0 {
		return 0, nil
	}

	var victims [][]byte
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = idxPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && int64(len(victims)) < excess; it.Next() {
			victims = append(victims, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("RetainLatest: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range victims {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("RetainLatest: %w", err)
		}
		if err := wb.Delete(postKey(postIDFromIndex(key))); err != nil {
			return 0, fmt.Errorf("RetainLatest: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("RetainLatest: %w", err)
	}
	return int64(len(victims)), nil
}

func postKey(postID string) []byte {
	return append(bytes.Clone(postPrefix), postID...)
}

// indexKey sorts by sent_at, then by insertion sequence.
func indexKey(sentAt time.Time, seq uint64, postID string) []byte {
	key := make([]byte, 0, len(idxPrefix)+17+len(postID))
	key = append(key, idxPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(sentAt.UnixNano()))
	key = binary.BigEndian.AppendUint64(key, seq)
	key = append(key, '/')
	return append(key, postID...)
}

func postIDFromIndex(key []byte) string {
	return string(key[len(idxPrefix)+17:])
}
