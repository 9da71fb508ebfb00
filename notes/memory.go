package notes

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps items in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	categories map[string]bool
	items      []Item
	now        func() time.Time
}

// NewMemoryStore returns a store seeded with the given categories.
func NewMemoryStore(categories ...string) *MemoryStore {
	s := &MemoryStore{categories: make(map[string]bool), now: time.Now}
	for _, c := range categories {
		s.categories[c] = true
	}
	return s
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.categories[item.Category] {
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, item.Category)
	}
	item.ID = uuid.NewString()
	item.CreatedAt = s.now()
	s.items = append(s.items, *item)
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, find Find) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Item
	for _, it := range s.items {
		if find.match(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Categories implements Store.
func (s *MemoryStore) Categories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.categories))
	for c := range s.categories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// EnsureCategory implements Store.
func (s *MemoryStore) EnsureCategory(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[name] = true
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
