/**
 * @description
 * PostgreSQL implementation of the Store contract. All collections share one
 * `documents` table keyed by (collection, id) with a JSONB payload.
 *
 * AtomicIncrement is a single UPDATE statement that rewrites the target field
 * with jsonb_set and returns the new value; Postgres row locking makes the
 * read-modify-write atomic without any caller-side coordination.
 *
 * @dependencies
 * - context, errors, fmt: Standard Go libraries.
 * - github.com/jackc/pgx/v5: PostgreSQL driver and connection pool.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id         TEXT NOT NULL,
    doc        JSONB NOT NULL,
    PRIMARY KEY (collection, id)
)`

// PostgresStore is a pgx-backed document store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an established connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the documents table if it does not exist. Called once
// at service start.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, documentsSchema); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return raw, nil
}

func (p *PostgresStore) Query(ctx context.Context, collection, field, value string) ([][]byte, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND doc->>$2 = $3 ORDER BY id`,
		collection, field, value,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

func (p *PostgresStore) Set(ctx context.Context, collection, id string, record any) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc`,
		collection, id, record,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *PostgresStore) AtomicIncrement(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	var newValue int64
	err := p.pool.QueryRow(ctx,
		`UPDATE documents
		 SET doc = jsonb_set(doc, ARRAY[$3], to_jsonb(COALESCE((doc->>$3)::bigint, 0) + $4))
		 WHERE collection = $1 AND id = $2
		 RETURNING (doc->>$3)::bigint`,
		collection, id, field, delta,
	).Scan(&newValue)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return newValue, nil
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}
