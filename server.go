package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	"sequoia-server/internal/atproto"
	"sequoia-server/internal/auth"
	"sequoia-server/internal/cache"
	"sequoia-server/internal/config"
	"sequoia-server/internal/pagemeta"
	"sequoia-server/internal/relay"
	"sequoia-server/internal/util"
)

// Request body size limits
const (
	maxBodySize = 16 * 1024 // widget forms carry two short fields
)

// server holds everything the widget handlers share.
type server struct {
	cfg       *config.ServerConfig
	cacheCfg  cache.CacheConfig
	store     cache.CacheBackend
	http      *http.Client
	resolver  atproto.HostResolver
	fetcher   recordFetcher
	pubs      *publicationLookup
	csrf      *auth.CSRFManager
	instances *instanceRegistry
	events    *eventHub
	now       func() time.Time

	// allowPrivateHosts lets tests point origins and pages at loopback servers.
	allowPrivateHosts bool
}

func newServer(cfg *config.ServerConfig, store cache.CacheBackend, csrf *auth.CSRFManager) (*server, error) {
	cacheCfg := cache.DefaultCacheConfig()

	client := &http.Client{
		Timeout:       cfg.HTTPTimeout.Duration,
		CheckRedirect: atproto.DefaultHTTPClient.CheckRedirect,
	}

	resolver := newCachingResolver(atproto.NewResolver(client, cfg.PLCURL), store, cacheCfg)
	fetcher := newDedupFetcher(atproto.NewClient(client, resolver, cfg.AppViewURL), store, cacheCfg.DocumentTTL)

	return &server{
		cfg:       cfg,
		cacheCfg:  cacheCfg,
		store:     store,
		http:      client,
		resolver:  resolver,
		fetcher:   fetcher,
		pubs:      newPublicationLookup(util.WithPublicRedirects(client), store, cacheCfg.PublicationTTL),
		csrf:      csrf,
		instances: newInstanceRegistry(cacheCfg.InstanceTTL, cacheCfg.InstanceCleanup),
		events:    newEventHub(),
		now:       time.Now,
	}, nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /static/sequoia.css", stylesheetHandler)

	mux.HandleFunc("GET /widget/subscribe", widgetHeaders(s.subscribeGetHandler))
	mux.HandleFunc("POST /widget/subscribe", widgetHeaders(limitBody(s.subscribePostHandler, maxBodySize)))
	mux.HandleFunc("POST /widget/subscribe/configure", widgetHeaders(limitBody(s.subscribeConfigureHandler, maxBodySize)))
	mux.HandleFunc("GET /widget/comments", widgetHeaders(s.commentsGetHandler))
	mux.HandleFunc("POST /widget/comments/configure", widgetHeaders(limitBody(s.commentsConfigureHandler, maxBodySize)))
	mux.Handle("GET /widget/events", s.events)

	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /metrics", s.metricsHandler)

	return RequestLoggingMiddleware(mux)
}

// limitBody wraps an HTTP handler to limit request body size
func limitBody(next http.HandlerFunc, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next(w, r)
	}
}

// widgetHeaders adds security headers suited to fragments that are embedded
// on other sites.
func widgetHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// - default-src 'none': fragments load nothing by themselves
		// - img-src https: data:: commenter avatars come from CDNs
		// - style-src 'self' 'unsafe-inline': widget stylesheet plus host theming
		// - frame-ancestors *: any site may embed the widgets
		csp := "default-src 'none'; " +
			"img-src https: data:; " +
			"style-src 'self' 'unsafe-inline'; " +
			"form-action 'self' https:; " +
			"frame-ancestors *"
		w.Header().Set("Content-Security-Policy", csp)

		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Referrer policy - don't leak full URLs to external sites
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next(w, r)
	}
}

// newRelayClient builds the relay client of one subscribe widget. Cookies the
// relay sets belong to that widget's reader and are dropped with it.
func (s *server) newRelayClient() (*relay.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return relay.NewClient(&http.Client{
		Timeout:       s.cfg.HTTPTimeout.Duration,
		Jar:           jar,
		CheckRedirect: util.PublicRedirects,
	}), nil
}

// pageProvider returns where the comments widget finds its document link
// when none is configured.
func (s *server) pageProvider(pageURL string) pagemeta.Provider {
	if pageURL == "" {
		return pagemeta.None
	}
	return &cachedPageLink{
		next:  pagemeta.NewRemote(s.http, pageURL),
		store: s.store,
		key:   "page:" + pageURL,
		ttl:   s.cacheCfg.PageLinkTTL,
	}
}

// cachedPageLink remembers the document link found on a page. Pages without
// a link are fetched again next time.
type cachedPageLink struct {
	next  pagemeta.Provider
	store cache.CacheBackend
	key   string
	ttl   time.Duration
}

func (p *cachedPageLink) DocumentLink(ctx context.Context) string {
	if data, found, _ := p.store.Get(ctx, p.key); found {
		IncrementCacheHit()
		return string(data)
	}
	IncrementCacheMiss()

	link := p.next.DocumentLink(ctx)
	if link != "" {
		p.store.Set(ctx, p.key, []byte(link), p.ttl)
	}
	return link
}
