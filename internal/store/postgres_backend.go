package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBackend keeps one row per collection in the clinic_collections table.
type PostgresBackend struct {
	db     pgxQuerier
	prefix string
}

// NewPostgresBackend accepts a pgxpool.Pool or anything with the same query surface.
func NewPostgresBackend(db pgxQuerier, prefix string) *PostgresBackend {
	if db == nil {
		panic("store: postgres pool cannot be nil")
	}
	return &PostgresBackend{db: db, prefix: prefix}
}

const upsertCollectionSQL = `
INSERT INTO clinic_collections (name, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`

const selectCollectionSQL = `SELECT payload FROM clinic_collections WHERE name = $1`

func (b *PostgresBackend) Save(ctx context.Context, collection string, payload []byte) error {
	if _, err := b.db.Exec(ctx, upsertCollectionSQL, b.prefix+collection, string(payload)); err != nil {
		return fmt.Errorf("store: upsert collection %s: %w", collection, err)
	}
	return nil
}

func (b *PostgresBackend) Load(ctx context.Context, collection string) ([]byte, error) {
	var payload string
	err := b.db.QueryRow(ctx, selectCollectionSQL, b.prefix+collection).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: select collection %s: %w", collection, err)
	}
	return []byte(payload), nil
}
