package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements CacheBackend on an in-process go-cache store
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok := m.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	return val.([]byte), true, nil
}

// Set stores value under key. A non-positive ttl keeps the entry until it is
// deleted.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.store.Set(key, value, ttl)
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (m *MemoryCache) Len() int {
	return m.store.ItemCount()
}

func (m *MemoryCache) Close() error {
	m.store.Flush()
	return nil
}
