package memory

import (
	"context"
	"sync"

	"nexuserp/backend/internal/store"
)

// Store is an in-process slot backend used in tests and for demo runs.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var _ store.Slot = (*Store)(nil)

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// NewSeeded returns a state store over a fresh in-memory slot. The default
// state is written lazily on the first Load.
func NewSeeded() *store.StateStore {
	return store.NewStateStore(New(), store.DefaultKey, nil)
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Raw exposes the stored bytes for a key. Used by tests that inspect the
// persisted document.
func (s *Store) Raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), value...), true
}
