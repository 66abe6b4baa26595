package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kopano7/Lejone-wings-cafe/internal/store"
)

// The json type (not jsonb) keeps stored text byte-for-byte.
const schema = `
	CREATE TABLE IF NOT EXISTS pos_collections (
		name       TEXT PRIMARY KEY,
		records    JSON NOT NULL DEFAULT '[]',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate pos_collections: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ensure(ctx context.Context, collections ...store.Collection) error {
	for _, c := range collections {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO pos_collections (name, records, updated_at)
			VALUES ($1, '[]', now())
			ON CONFLICT (name) DO NOTHING
		`, string(c)); err != nil {
			return store.IOError("ensure", c, err)
		}
	}
	return nil
}

func (s *Store) Load(ctx context.Context, collection store.Collection) ([]byte, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT records
		FROM pos_collections
		WHERE name = $1
	`, string(collection)).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, store.IOError("load", collection, err)
	}
	return raw, nil
}

// Update locks the rows of every listed collection for the duration of fn, so
// concurrent writers from any process queue behind each other.
func (s *Store) Update(ctx context.Context, collections []store.Collection, fn func(current store.Documents) (store.Documents, error)) error {
	if len(collections) == 0 {
		return nil
	}
	scope := collections[0]

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return store.IOError("begin", scope, err)
	}
	defer func() { _ = pgTx.Rollback() }()

	names := make([]string, 0, len(collections))
	for _, c := range collections {
		names = append(names, string(c))
		// Rows must exist before FOR UPDATE can lock them.
		if _, err := pgTx.ExecContext(ctx, `
			INSERT INTO pos_collections (name, records, updated_at)
			VALUES ($1, '[]', now())
			ON CONFLICT (name) DO NOTHING
		`, string(c)); err != nil {
			return store.IOError("ensure", c, err)
		}
	}

	rows, err := pgTx.QueryContext(ctx, `
		SELECT name, records
		FROM pos_collections
		WHERE name = ANY($1)
		ORDER BY name
		FOR UPDATE
	`, names)
	if err != nil {
		return store.IOError("lock", scope, err)
	}
	current := make(store.Documents, len(collections))
	for rows.Next() {
		var name string
		var raw []byte
		if err := rows.Scan(&name, &raw); err != nil {
			_ = rows.Close()
			return store.IOError("scan", store.Collection(name), err)
		}
		current[store.Collection(name)] = raw
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return store.IOError("scan", scope, err)
	}
	_ = rows.Close()

	writes, err := fn(current)
	if err != nil {
		return err
	}

	for _, c := range collections {
		raw, ok := writes[c]
		if !ok {
			continue
		}
		if _, err := pgTx.ExecContext(ctx, `
			UPDATE pos_collections
			SET records = $2, updated_at = now()
			WHERE name = $1
		`, string(c), string(raw)); err != nil {
			return store.IOError("replace", c, err)
		}
	}

	if err := pgTx.Commit(); err != nil {
		return store.IOError("commit", scope, err)
	}
	return nil
}
