package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps one JSON file per thread under a directory. File names
// are lower case so thread IDs differing only in case stay apart on
// case-insensitive filesystems.
type FileStore struct {
	dir   string
	mu    sync.Mutex
	locks map[string]*threadLock
}

// threadLock is dropped from the map once nobody holds or waits on it.
type threadLock struct {
	mu   sync.Mutex
	refs int
}

// NewFileStore creates the directory if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &FileStore{dir: dir, locks: make(map[string]*threadLock)}, nil
}

func (s *FileStore) lock(threadID string) func() {
	s.mu.Lock()
	l, ok := s.locks[threadID]
	if !ok {
		l = &threadLock{}
		s.locks[threadID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, threadID)
		}
		s.mu.Unlock()
	}
}

// PathFor returns the file a thread is stored in.
func (s *FileStore) PathFor(threadID string) string {
	name := strings.ToLower(sanitizePathSegment(threadID))
	if name != threadID {
		h := fnv.New32a()
		h.Write([]byte(threadID))
		name = fmt.Sprintf("%s-%08x", name, h.Sum32())
	}
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) read(threadID string) (*Record, error) {
	data, err := os.ReadFile(s.PathFor(threadID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", threadID, err)
	}
	if rec.ThreadID != threadID {
		return nil, fmt.Errorf("%w: %s holds thread %q, not %q", ErrConflict, s.PathFor(threadID), rec.ThreadID, threadID)
	}
	return &rec, nil
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, threadID string) (*Record, error) {
	unlock := s.lock(threadID)
	defer unlock()
	return s.read(threadID)
}

// Save implements Store. The file is replaced atomically via rename.
func (s *FileStore) Save(_ context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	unlock := s.lock(rec.ThreadID)
	defer unlock()

	base := stamp(rec.UpdatedAt)
	var stored int64
	cur, err := s.read(rec.ThreadID)
	switch {
	case err == nil:
		stored = stamp(cur.UpdatedAt)
	case errors.Is(err, ErrNotFound):
	default:
		return err
	}
	if stored != base {
		return ErrConflict
	}

	saved := *rec
	saved.UpdatedAt = fromStamp(nextStamp(base))
	data, err := json.MarshalIndent(&saved, "", "  ")
	if err != nil {
		return err
	}

	path := s.PathFor(rec.ThreadID)
	tmp, err := os.CreateTemp(s.dir, ".checkpoint-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	rec.UpdatedAt = saved.UpdatedAt
	return nil
}

// Exists implements Store.
func (s *FileStore) Exists(_ context.Context, threadID string) (bool, error) {
	unlock := s.lock(threadID)
	defer unlock()
	_, err := s.read(threadID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context, threadID string) error {
	unlock := s.lock(threadID)
	defer unlock()
	err := os.Remove(s.PathFor(threadID))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

func sanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "_"
	}

	var b strings.Builder
	b.Grow(len(segment))
	lastUnderscore := false
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "_"
	}
	return out
}
