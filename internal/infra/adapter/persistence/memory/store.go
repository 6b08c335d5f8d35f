// Package memory implements a process-local dedup store used when no
// persistent backend is configured. Its contents are lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"newsrelay/internal/domain/entity"
)

type entry struct {
	rec entity.SentRecord
	seq uint64
}

// Store keeps sent records in a map guarded by a mutex.
type Store struct {
	mu      sync.Mutex
	records map[string]entry
	nextSeq uint64
}

func NewStore() *Store {
	return &Store{records: make(map[string]entry)}
}

func (s *Store) Exists(_ context.Context, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[postID]
	return ok, nil
}

func (s *Store) Insert(_ context.Context, rec *entity.SentRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.PostID]; ok {
		return false, nil
	}
	s.nextSeq++
	s.records[rec.PostID] = entry{rec: *rec, seq: s.nextSeq}
	return true, nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}

func (s *Store) RetainLatest(_ context.Context, limit int) (int64, error) {
	if limit < 0 {
		return 0, fmt.Errorf("RetainLatest: negative limit %d", limit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) <= limit {
		return 0, nil
	}
	entries := make([]entry, 0, len(s.records))
	for _, e := range s.records {
		entries = append(entries, e)
	}
	// oldest first
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.rec.SentAt.Equal(b.rec.SentAt) {
			return a.rec.SentAt.Before(b.rec.SentAt)
		}
		return a.seq < b.seq
	})

	excess := len(entries) - limit
	for _, e := range entries[:excess] {
		delete(s.records, e.rec.PostID)
	}
	return int64(excess), nil
}
