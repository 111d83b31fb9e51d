package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sequoia-server/internal/atproto"
	"sequoia-server/internal/cache"
)

// cachingResolver remembers DID to PDS resolutions. Definitive failures
// (unsupported method, unreachable document, no PDS entry) are cached for a
// shorter time; network errors are not cached.
type cachingResolver struct {
	next    atproto.HostResolver
	store   cache.CacheBackend
	ttl     time.Duration
	failTTL time.Duration
	group   flightGroup
}

func newCachingResolver(next atproto.HostResolver, store cache.CacheBackend, cfg cache.CacheConfig) *cachingResolver {
	return &cachingResolver{
		next:    next,
		store:   store,
		ttl:     cfg.DIDTTL,
		failTTL: cfg.DIDFailTTL,
	}
}

type cachedHost struct {
	Endpoint string `json:"endpoint,omitempty"`
	Kind     int    `json:"kind,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (c *cachingResolver) ResolvePDS(ctx context.Context, did string) (string, error) {
	key := "pds:" + did

	var entry cachedHost
	found, err := cache.GetJSON(ctx, c.store, key, &entry)
	if err != nil {
		slog.Warn("pds cache read failed", "did", did, "error", err)
	}
	if found {
		IncrementCacheHit()
		if entry.Endpoint == "" {
			return "", &atproto.Error{Kind: atproto.Kind(entry.Kind), Msg: entry.Message}
		}
		return entry.Endpoint, nil
	}
	IncrementCacheMiss()

	return shareFlight(ctx, &c.group, did, func(ctx context.Context) (string, error) {
		endpoint, err := c.next.ResolvePDS(ctx, did)
		if err == nil {
			cache.SetJSON(ctx, c.store, key, cachedHost{Endpoint: endpoint}, c.ttl)
			return endpoint, nil
		}

		var aerr *atproto.Error
		if errors.As(err, &aerr) && definitive(aerr.Kind) {
			cache.SetJSON(ctx, c.store, key, cachedHost{Kind: int(aerr.Kind), Message: aerr.Error()}, c.failTTL)
		}
		return "", err
	})
}

func definitive(k atproto.Kind) bool {
	switch k {
	case atproto.KindUnsupportedMethod, atproto.KindResolutionFailed, atproto.KindNoHostFound:
		return true
	}
	return false
}
