package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// getDBPool creates a connection pool. We use a pool (not a single conn) because
// hosted Postgres closes idle connections after a few minutes.
func getDBPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	if dbURL == "" {
		return nil, errors.New("DB_URL not set")
	}
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse DB URL: %w", err)
	}
	// Use simple query protocol to avoid "cached plan must not change result type"
	// errors from server-side prepared statement caches after schema changes.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return pool, nil
}

/* ─── Database helpers ────────────────────────────────────────────────── */

// queryOne runs a query and scans the first row into T using RowToStructByName.
func queryOne[T any](ctx context.Context, pool *pgxpool.Pool, sql string, args pgx.NamedArgs) (T, error) {
	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("query: %w", err)
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
}

/* ─── Store ──────────────────────────────────────────────────────────── */

// quickcheckDocument is a row of quickcheck_documents.
type quickcheckDocument struct {
	Key       string    `db:"key"`
	Doc       []byte    `db:"doc"`
	UpdatedAt time.Time `db:"updated_at"`
}

// postgresStore keeps documents as jsonb keyed by storage key.
type postgresStore struct {
	db *pgxpool.Pool
}

func newPostgresStore(db *pgxpool.Pool) *postgresStore {
	return &postgresStore{db: db}
}

func (s *postgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row, err := queryOne[quickcheckDocument](ctx, s.db,
		"SELECT key, doc, updated_at FROM quickcheck_documents WHERE key = @key",
		pgx.NamedArgs{"key": key})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return row.Doc, true, nil
}

func (s *postgresStore) Set(ctx context.Context, key string, doc []byte) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO quickcheck_documents (key, doc, updated_at)
		 VALUES (@key, @doc::jsonb, NOW())
		 ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
		pgx.NamedArgs{"key": key, "doc": string(doc)})
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (s *postgresStore) Close() {
	s.db.Close()
}
