package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/kopano7/Lejone-wings-cafe/internal/store"
)

// Store keeps encoded collections in process memory. Update holds the write
// lock for the whole read-modify-write, so readers never observe a partial commit.
type Store struct {
	mu   sync.RWMutex
	docs map[store.Collection][]byte
}

func New() *Store {
	return &Store{docs: make(map[store.Collection][]byte)}
}

// NewSeeded returns a store whose collections start from the given documents.
func NewSeeded(docs store.Documents) *Store {
	s := New()
	for c, raw := range docs {
		s.docs[c] = slices.Clone(raw)
	}
	return s
}

func (s *Store) Ensure(_ context.Context, collections ...store.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range collections {
		if _, exists := s.docs[c]; !exists {
			s.docs[c] = slices.Clone(store.EmptyDocument)
		}
	}
	return nil
}

func (s *Store) Load(_ context.Context, collection store.Collection) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, exists := s.docs[collection]
	if !exists {
		return nil, nil
	}
	return slices.Clone(raw), nil
}

func (s *Store) Update(_ context.Context, collections []store.Collection, fn func(current store.Documents) (store.Documents, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(store.Documents, len(collections))
	for _, c := range collections {
		if raw, exists := s.docs[c]; exists {
			current[c] = slices.Clone(raw)
		}
	}

	writes, err := fn(current)
	if err != nil {
		return err
	}

	for _, c := range collections {
		if raw, ok := writes[c]; ok {
			s.docs[c] = slices.Clone(raw)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
