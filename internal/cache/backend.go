package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// CacheBackend defines the interface for cache implementations
type CacheBackend interface {
	// Get retrieves a value from the cache
	// Returns (value, found, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value in the cache with the given TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Close closes the cache connection
	Close() error
}

// Backend kinds accepted by New.
const (
	KindMemory    = "memory"
	KindRedis     = "redis"
	KindMemcached = "memcached"
)

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	Kind          string
	RedisURL      string
	MemcachedAddr string
	Prefix        string
}

// New builds the backend named by cfg.Kind. An empty kind means memory.
func New(cfg BackendConfig) (CacheBackend, error) {
	switch cfg.Kind {
	case "", KindMemory:
		return NewMemoryCache(DefaultCleanupInterval), nil
	case KindRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis cache requires a redis URL")
		}
		return NewRedisCache(cfg.RedisURL, cfg.Prefix)
	case KindMemcached:
		if cfg.MemcachedAddr == "" {
			return nil, fmt.Errorf("memcached cache requires a server address")
		}
		return NewMemcachedCache(cfg.MemcachedAddr, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Kind)
	}
}

// GetJSON loads key and decodes it into v. A value that no longer decodes is
// reported as a miss.
func GetJSON(ctx context.Context, b CacheBackend, key string, v any) (bool, error) {
	data, found, err := b.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, b CacheBackend, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Set(ctx, key, data, ttl)
}
