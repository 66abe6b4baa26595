package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kopano7/Lejone-wings-cafe/internal/store"
)

const defaultMaxRetries = 16

// Store keeps one string key per collection. Update is an optimistic
// transaction: WATCH the keys, run the callback, then MULTI/EXEC the writes,
// retrying from a fresh read when another writer got there first.
type Store struct {
	client     *goredis.Client
	prefix     string
	maxRetries int
}

func New(addr string, password string, db int, prefix string) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Store{client: client, prefix: prefix, maxRetries: defaultMaxRetries}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(c store.Collection) string {
	return s.prefix + string(c)
}

func (s *Store) Ensure(ctx context.Context, collections ...store.Collection) error {
	for _, c := range collections {
		if err := s.client.SetNX(ctx, s.key(c), store.EmptyDocument, 0).Err(); err != nil {
			return store.IOError("ensure", c, err)
		}
	}
	return nil
}

func (s *Store) Load(ctx context.Context, collection store.Collection) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.key(collection)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, store.IOError("load", collection, err)
	}
	return raw, nil
}

func (s *Store) Update(ctx context.Context, collections []store.Collection, fn func(current store.Documents) (store.Documents, error)) error {
	if len(collections) == 0 {
		return nil
	}

	keys := make([]string, 0, len(collections))
	for _, c := range collections {
		keys = append(keys, s.key(c))
	}

	var fnErr error
	txf := func(tx *goredis.Tx) error {
		current := make(store.Documents, len(collections))
		for _, c := range collections {
			raw, err := tx.Get(ctx, s.key(c)).Bytes()
			if err == goredis.Nil {
				continue
			}
			if err != nil {
				return store.IOError("load", c, err)
			}
			current[c] = raw
		}

		writes, err := fn(current)
		if err != nil {
			fnErr = err
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			for _, c := range collections {
				if raw, ok := writes[c]; ok {
					pipe.Set(ctx, s.key(c), raw, 0)
				}
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		fnErr = nil
		err := s.client.Watch(ctx, txf, keys...)
		if err == nil {
			return nil
		}
		if fnErr != nil {
			return fnErr
		}
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if errors.Is(err, store.ErrIO) {
			return err
		}
		return store.IOError("commit", collections[0], err)
	}
	return store.IOError("commit", collections[0], fmt.Errorf("gave up after %d conflicting attempts", s.maxRetries))
}
