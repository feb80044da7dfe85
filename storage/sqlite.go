package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"pwb_feeds/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS feed_cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS provider_checks (
		id TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL,
		available BOOLEAN NOT NULL,
		latency_ms INTEGER,
		checked_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cache_expires ON feed_cache(expires_at);
	CREATE INDEX IF NOT EXISTS idx_checks_provider ON provider_checks(provider_id, checked_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT value FROM feed_cache WHERE key = ? AND expires_at > ?`, key, time.Now().UnixMilli())

	var value []byte
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_cache (key, value, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		key, value, time.Now().Add(ttl).UnixMilli(), time.Now().UTC())
	return err
}

// Purge deletes expired entries
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM feed_cache WHERE expires_at <= ?`, time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) RecordCheck(ctx context.Context, check *models.ProviderCheck) error {
	if check.ID == uuid.Nil {
		check.ID = uuid.New()
	}
	if check.CheckedAt.IsZero() {
		check.CheckedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO provider_checks (id, provider_id, available, latency_ms, checked_at)
		VALUES (?, ?, ?, ?, ?)`,
		check.ID.String(), check.ProviderID, check.Available, check.Latency.Milliseconds(), check.CheckedAt)
	return err
}

// RecentChecks returns the newest checks first
func (s *SQLiteStore) RecentChecks(ctx context.Context, providerID string, limit int) ([]models.ProviderCheck, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider_id, available, latency_ms, checked_at
		FROM provider_checks WHERE provider_id = ?
		ORDER BY checked_at DESC LIMIT ?`, providerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []models.ProviderCheck
	for rows.Next() {
		var c models.ProviderCheck
		var id string
		var latencyMS sql.NullInt64
		if err := rows.Scan(&id, &c.ProviderID, &c.Available, &latencyMS, &c.CheckedAt); err != nil {
			return nil, err
		}
		c.ID, _ = uuid.Parse(id)
		c.Latency = time.Duration(latencyMS.Int64) * time.Millisecond
		checks = append(checks, c)
	}
	return checks, rows.Err()
}
