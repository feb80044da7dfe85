// Package storage persists cached feed responses and provider health checks.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pwb_feeds/config"
	"pwb_feeds/models"
)

// Store is the cache and check history backend. Get reports a miss as
// (nil, false, nil); expired entries are misses.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Purge(ctx context.Context) (int64, error)

	RecordCheck(ctx context.Context, check *models.ProviderCheck) error
	RecentChecks(ctx context.Context, providerID string, limit int) ([]models.ProviderCheck, error)

	Close() error
}

// Open picks the backend named by cfg.Driver
func Open(ctx context.Context, cfg *config.CacheConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLiteStore(cfg.DBPath)
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("postgres cache requires DATABASE_URL")
		}
		return NewPostgresStore(ctx, cfg.DBURL)
	case "none":
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

// GetJSON decodes a cached entry into v
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	return s.Set(ctx, key, data, ttl)
}

// NopStore caches nothing and keeps no history
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NopStore) Purge(context.Context) (int64, error) { return 0, nil }

func (NopStore) RecordCheck(context.Context, *models.ProviderCheck) error { return nil }

func (NopStore) RecentChecks(context.Context, string, int) ([]models.ProviderCheck, error) {
	return nil, nil
}

func (NopStore) Close() error { return nil }
