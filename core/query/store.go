package query

import (
	"context"
	"sync"
	"time"
)

// Entry is the failure record of one query key.
type Entry struct {
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure"`
}

// Store holds failure entries by key hash. Incr must be atomic.
type Store interface {
	Get(ctx context.Context, hash string) (Entry, error)
	Incr(ctx context.Context, hash string, at time.Time) (Entry, error)
	Reset(ctx context.Context, hash string) error
	// Snapshot returns every entry with at least one failure.
	Snapshot(ctx context.Context) (map[string]Entry, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

var _ Store = (*MemoryStore)(nil) // interface compliance check

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, hash string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[hash], nil
}

func (s *MemoryStore) Incr(_ context.Context, hash string, at time.Time) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[hash]
	entry.Failures++
	entry.LastFailure = at
	s.entries[hash] = entry
	return entry, nil
}

func (s *MemoryStore) Reset(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, hash)
	return nil
}

func (s *MemoryStore) Snapshot(_ context.Context) (map[string]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := make(map[string]Entry, len(s.entries))
	for hash, entry := range s.entries {
		snap[hash] = entry
	}
	return snap, nil
}
