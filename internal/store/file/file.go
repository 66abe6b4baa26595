package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/kopano7/Lejone-wings-cafe/internal/store"
)

// Store persists each collection as <dir>/<Collection>.json.
//
// A single process owns the directory. Update holds the write lock across
// every file it replaces, and each file is swapped in with a rename, so a
// reader sees either the old or the new contents of all files.
type Store struct {
	dir string
	mu  sync.RWMutex
}

func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir %s: %w", store.ErrIO, dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(c store.Collection) string {
	return filepath.Join(s.dir, string(c)+".json")
}

func (s *Store) Ensure(_ context.Context, collections ...store.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range collections {
		_, err := os.Stat(s.path(c))
		if err == nil {
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return store.IOError("stat", c, err)
		}
		if err := s.writeAtomic(c, store.EmptyDocument); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Load(_ context.Context, collection store.Collection) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.read(collection)
}

func (s *Store) Update(_ context.Context, collections []store.Collection, fn func(current store.Documents) (store.Documents, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(store.Documents, len(collections))
	for _, c := range collections {
		raw, err := s.read(c)
		if err != nil {
			return err
		}
		current[c] = raw
	}

	writes, err := fn(current)
	if err != nil {
		return err
	}

	for _, c := range collections {
		raw, ok := writes[c]
		if !ok {
			continue
		}
		if err := s.writeAtomic(c, raw); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

// read treats a missing file as a never-initialized collection.
func (s *Store) read(c store.Collection) ([]byte, error) {
	raw, err := os.ReadFile(s.path(c))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, store.IOError("read", c, err)
	}
	return raw, nil
}

func (s *Store) writeAtomic(c store.Collection, raw []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+string(c)+"-*.tmp")
	if err != nil {
		return store.IOError("create temp", c, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		cleanup()
		return store.IOError("write", c, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return store.IOError("sync", c, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return store.IOError("close", c, err)
	}
	if err := os.Rename(tmpName, s.path(c)); err != nil {
		cleanup()
		return store.IOError("rename", c, err)
	}
	return nil
}
