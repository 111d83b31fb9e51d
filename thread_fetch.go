package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"sequoia-server/internal/atproto"
	"sequoia-server/internal/cache"
)

// recordFetcher is the record fetcher the widgets and CLI share.
type recordFetcher interface {
	GetDocument(ctx context.Context, uri string) (*atproto.Document, error)
	GetPostThread(ctx context.Context, postURI string, depth int) (*atproto.ThreadNode, error)
}

// dedupFetcher collapses concurrent identical reads. Documents are cached
// for docTTL; threads change as replies arrive, so they are shared only
// between callers that overlap in time.
type dedupFetcher struct {
	next    recordFetcher
	store   cache.CacheBackend
	docTTL  time.Duration
	docs    flightGroup
	threads flightGroup
}

func newDedupFetcher(next recordFetcher, store cache.CacheBackend, docTTL time.Duration) *dedupFetcher {
	return &dedupFetcher{next: next, store: store, docTTL: docTTL}
}

func (f *dedupFetcher) GetDocument(ctx context.Context, uri string) (*atproto.Document, error) {
	key := "doc:" + uri

	var doc atproto.Document
	found, err := cache.GetJSON(ctx, f.store, key, &doc)
	if err != nil {
		slog.Warn("document cache read failed", "uri", uri, "error", err)
	}
	if found {
		IncrementCacheHit()
		return &doc, nil
	}
	IncrementCacheMiss()

	return shareFlight(ctx, &f.docs, uri, func(ctx context.Context) (*atproto.Document, error) {
		doc, err := f.next.GetDocument(ctx, uri)
		if err != nil {
			return nil, err
		}
		if err := cache.SetJSON(ctx, f.store, key, doc, f.docTTL); err != nil {
			slog.Warn("document cache write failed", "uri", uri, "error", err)
		}
		return doc, nil
	})
}

func (f *dedupFetcher) GetPostThread(ctx context.Context, postURI string, depth int) (*atproto.ThreadNode, error) {
	key := postURI + "#" + strconv.Itoa(depth)
	return shareFlight(ctx, &f.threads, key, func(ctx context.Context) (*atproto.ThreadNode, error) {
		return f.next.GetPostThread(ctx, postURI, depth)
	})
}
