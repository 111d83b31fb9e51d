package main

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"sequoia-server/internal/cache"
)

type countingProvider struct {
	link  string
	calls atomic.Int32
}

func (p *countingProvider) DocumentLink(ctx context.Context) string {
	p.calls.Add(1)
	return p.link
}

func TestCachedPageLink(t *testing.T) {
	ctx := context.Background()

	t.Run("found link is cached", func(t *testing.T) {
		store := cache.NewMemoryCache(time.Minute)
		defer store.Close()
		next := &countingProvider{link: docWithComments}
		p := &cachedPageLink{next: next, store: store, key: "page:https://blog.example.com/a", ttl: time.Minute}

		for i := 0; i < 3; i++ {
			if got := p.DocumentLink(ctx); got != docWithComments {
				t.Fatalf("link = %q", got)
			}
		}
		if n := next.calls.Load(); n != 1 {
			t.Errorf("page fetched %d times, want 1", n)
		}
	})

	t.Run("missing link is not cached", func(t *testing.T) {
		store := cache.NewMemoryCache(time.Minute)
		defer store.Close()
		next := &countingProvider{}
		p := &cachedPageLink{next: next, store: store, key: "page:https://blog.example.com/b", ttl: time.Minute}

		p.DocumentLink(ctx)
		p.DocumentLink(ctx)
		if n := next.calls.Load(); n != 2 {
			t.Errorf("page fetched %d times, want 2", n)
		}
	})
}

func TestWidgetHeaders(t *testing.T) {
	_, ts := newTestServer(t, newFakeNetwork(t))

	resp, err := ts.Client().Get(ts.URL + "/widget/comments")
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)

	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Errorf("Content-Type = %q", got)
	}
	csp := resp.Header.Get("Content-Security-Policy")
	for _, want := range []string{"default-src 'none'", "frame-ancestors *"} {
		if !strings.Contains(csp, want) {
			t.Errorf("csp %q missing %q", csp, want)
		}
	}
}

func TestLimitBody(t *testing.T) {
	_, ts := newTestServer(t, newFakeNetwork(t))

	big := "instance=" + strings.Repeat("x", maxBodySize+1)
	resp, err := ts.Client().Post(ts.URL+"/widget/comments/configure", "application/x-www-form-urlencoded", strings.NewReader(big))
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMetricsHandler(t *testing.T) {
	n := newFakeNetwork(t)
	_, ts := newTestServer(t, n)
	client := ts.Client()

	resp, err := client.Get(ts.URL + "/widget/comments?document-uri=" + url.QueryEscape(docWithComments))
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)

	resp, err = client.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	mustContain(t, body,
		"# TYPE http_requests_total counter",
		"widget_loads_total",
		"widget_instances_active",
		"cache_misses_total",
		"sequoia_build_info",
	)
}
