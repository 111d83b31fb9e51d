package cache

import "time"

// DefaultCleanupInterval is how often the memory backend sweeps expired entries.
const DefaultCleanupInterval = 5 * time.Minute

// CacheConfig holds cache TTL configuration
type CacheConfig struct {
	DIDTTL          time.Duration
	DIDFailTTL      time.Duration
	DocumentTTL     time.Duration
	PublicationTTL  time.Duration
	PageLinkTTL     time.Duration
	InstanceTTL     time.Duration
	InstanceCleanup time.Duration
}

// DefaultCacheConfig returns sensible defaults
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DIDTTL:          1 * time.Hour, // PDS hosts move rarely
		DIDFailTTL:      1 * time.Minute,
		DocumentTTL:     5 * time.Minute, // threads are never cached, replies arrive continuously
		PublicationTTL:  10 * time.Minute,
		PageLinkTTL:     10 * time.Minute,
		InstanceTTL:     30 * time.Minute,
		InstanceCleanup: 1 * time.Minute,
	}
}
