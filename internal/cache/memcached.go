package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// memcached rejects keys longer than this or containing spaces and control
// characters.
const maxMemcachedKey = 250

// MemcachedCache implements CacheBackend using memcached
type MemcachedCache struct {
	client *memcache.Client
	prefix string
}

// NewMemcachedCache connects to a comma-free server address ("host:port").
func NewMemcachedCache(server string, prefix string) (*MemcachedCache, error) {
	client := memcache.New(server)
	client.Timeout = 3 * time.Second
	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("memcached connection failed: %w", err)
	}
	return &MemcachedCache{client: client, prefix: prefix}, nil
}

func (m *MemcachedCache) key(k string) string {
	return memcachedKey(m.prefix + k)
}

func memcachedKey(k string) string {
	if len(k) <= maxMemcachedKey && validMemcachedKey(k) {
		return k
	}
	sum := sha256.Sum256([]byte(k))
	return "h:" + hex.EncodeToString(sum[:])
}

func validMemcachedKey(k string) bool {
	for i := 0; i < len(k); i++ {
		if k[i] <= ' ' || k[i] == 0x7f {
			return false
		}
	}
	return true
}

func (m *MemcachedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item, err := m.client.Get(m.key(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return item.Value, true, nil
}

func (m *MemcachedCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        m.key(key),
		Value:      value,
		Expiration: expirationSeconds(ttl),
	})
}

// expirationSeconds converts ttl to memcached's relative expiry. Zero means
// no expiry; sub-second TTLs round up so they do not become permanent.
func expirationSeconds(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	secs := int64((ttl + time.Second - 1) / time.Second)
	// Values above 30 days are read as unix timestamps.
	if secs > 30*24*60*60 {
		secs = 30 * 24 * 60 * 60
	}
	return int32(secs)
}

func (m *MemcachedCache) Delete(ctx context.Context, key string) error {
	err := m.client.Delete(m.key(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

func (m *MemcachedCache) Close() error {
	return m.client.Close()
}
