package checkpoint

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, threadID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	base := stamp(rec.UpdatedAt)
	var stored int64
	if cur, ok := s.records[rec.ThreadID]; ok {
		stored = stamp(cur.UpdatedAt)
	}
	if stored != base {
		return ErrConflict
	}

	saved := rec.Clone()
	saved.UpdatedAt = fromStamp(nextStamp(base))
	s.records[rec.ThreadID] = saved
	rec.UpdatedAt = saved.UpdatedAt
	return nil
}

// Exists implements Store.
func (s *MemoryStore) Exists(_ context.Context, threadID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[threadID]
	return ok, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, threadID)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
