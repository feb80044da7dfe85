package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pwb_feeds/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS feed_cache (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_feed_cache_expires ON feed_cache(expires_at);

		CREATE TABLE IF NOT EXISTS provider_checks (
			id UUID PRIMARY KEY,
			provider_id TEXT NOT NULL,
			available BOOLEAN NOT NULL,
			latency_ms BIGINT,
			checked_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_provider_checks_provider ON provider_checks(provider_id, checked_at DESC);`)
	return err
}

// =============================================================================
// Cache
// =============================================================================

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM feed_cache WHERE key = $1 AND expires_at > NOW()`, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feed_cache (key, value, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at,
			created_at = NOW()`,
		key, value, time.Now().Add(ttl))
	return err
}

func (s *PostgresStore) Purge(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM feed_cache WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// =============================================================================
// Provider checks
// =============================================================================

func (s *PostgresStore) RecordCheck(ctx context.Context, check *models.ProviderCheck) error {
	if check.ID == uuid.Nil {
		check.ID = uuid.New()
	}
	if check.CheckedAt.IsZero() {
		check.CheckedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO provider_checks (id, provider_id, available, latency_ms, checked_at)
		VALUES ($1, $2, $3, $4, $5)`,
		check.ID, check.ProviderID, check.Available, check.Latency.Milliseconds(), check.CheckedAt)
	return err
}

func (s *PostgresStore) RecentChecks(ctx context.Context, providerID string, limit int) ([]models.ProviderCheck, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, provider_id, available, COALESCE(latency_ms, 0), checked_at
		FROM provider_checks WHERE provider_id = $1
		ORDER BY checked_at DESC LIMIT $2`, providerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []models.ProviderCheck
	for rows.Next() {
		var c models.ProviderCheck
		var latencyMS int64
		if err := rows.Scan(&c.ID, &c.ProviderID, &c.Available, &latencyMS, &c.CheckedAt); err != nil {
			return nil, err
		}
		c.Latency = time.Duration(latencyMS) * time.Millisecond
		checks = append(checks, c)
	}
	return checks, rows.Err()
}
