package main

import (
	"context"
	"time"

	"sequoia-server/internal/atproto"
	"sequoia-server/internal/cache"
)

// publicationLookup finds publication URIs for site origins. Successful
// lookups are cached per origin; failures are retried on the next call.
type publicationLookup struct {
	http  atproto.HTTPDoer
	store cache.CacheBackend
	ttl   time.Duration
	group flightGroup
}

func newPublicationLookup(client atproto.HTTPDoer, store cache.CacheBackend, ttl time.Duration) *publicationLookup {
	return &publicationLookup{http: client, store: store, ttl: ttl}
}

func (p *publicationLookup) lookup(ctx context.Context, origin string) (string, error) {
	key := "publication:" + origin
	if data, found, _ := p.store.Get(ctx, key); found {
		IncrementCacheHit()
		return string(data), nil
	}
	IncrementCacheMiss()

	return shareFlight(ctx, &p.group, origin, func(ctx context.Context) (string, error) {
		uri, err := atproto.NewPublicationProbe(p.http, origin).PublicationURI(ctx)
		if err != nil {
			return "", err
		}
		p.store.Set(ctx, key, []byte(uri), p.ttl)
		return uri, nil
	})
}

// forOrigin binds the lookup to one site, giving the subscribe widget its
// publication source.
func (p *publicationLookup) forOrigin(origin string) originPublication {
	return originPublication{lookup: p, origin: origin}
}

type originPublication struct {
	lookup *publicationLookup
	origin string
}

func (o originPublication) PublicationURI(ctx context.Context) (string, error) {
	return o.lookup.lookup(ctx, o.origin)
}
