package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppiankov/claimcheck/internal/model"
)

// DB is the subset of pgxpool.Pool used by PostgresStore
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS analysis_cache (
	id          TEXT PRIMARY KEY,
	cache_key   TEXT NOT NULL,
	claim_text  TEXT NOT NULL,
	result      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS analysis_cache_key_created_idx
	ON analysis_cache (cache_key, created_at DESC);
`

// PostgresStore keeps entries in the analysis_cache table
type PostgresStore struct {
	db DB
}

// NewPostgresStore connects to dsn and ensures the table exists
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := NewPostgresStoreWithDB(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB wraps an existing connection pool
func NewPostgresStoreWithDB(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the cache table and index if missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create analysis_cache table: %w", err)
	}
	return nil
}

// Insert adds a row for the entry
func (s *PostgresStore) Insert(ctx context.Context, entry *model.CacheEntry) error {
	if entry.Result == nil || entry.Result.ID == "" {
		return fmt.Errorf("cache entry has no result id")
	}
	data, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	query := `
		INSERT INTO analysis_cache (id, cache_key, claim_text, result, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.db.Exec(ctx, query, entry.Result.ID, entry.Key, entry.Result.ClaimText, data, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Latest returns the newest row for key created at or after since
func (s *PostgresStore) Latest(ctx context.Context, key string, since time.Time) (*model.CacheEntry, error) {
	query := `
		SELECT cache_key, result, created_at
		FROM analysis_cache
		WHERE cache_key = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.scanEntry(s.db.QueryRow(ctx, query, key, since), "cache entry")
}

// ByID returns the row with the given result id
func (s *PostgresStore) ByID(ctx context.Context, id string) (*model.CacheEntry, error) {
	query := `
		SELECT cache_key, result, created_at
		FROM analysis_cache
		WHERE id = $1
	`
	return s.scanEntry(s.db.QueryRow(ctx, query, id), "analysis")
}

// DeleteBefore removes rows created before cutoff
func (s *PostgresStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM analysis_cache WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func (s *PostgresStore) scanEntry(row pgx.Row, what string) (*model.CacheEntry, error) {
	var (
		entry model.CacheEntry
		data  []byte
	)
	err := row.Scan(&entry.Key, &data, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(what)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cache entry: %w", err)
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	entry.Result = &result
	return &entry, nil
}
