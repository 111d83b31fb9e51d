package main

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sequoia-server/internal/atproto"
	"sequoia-server/internal/cache"
)

type fakeResolver struct {
	calls    atomic.Int32
	endpoint string
	err      error
	release  chan struct{}
}

func (f *fakeResolver) ResolvePDS(ctx context.Context, did string) (string, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.endpoint, f.err
}

func newTestCachingResolver(t *testing.T, next atproto.HostResolver) *cachingResolver {
	t.Helper()
	store := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { store.Close() })
	return newCachingResolver(next, store, cache.DefaultCacheConfig())
}

func TestCachingResolver(t *testing.T) {
	testCases := []struct {
		name      string
		endpoint  string
		err       error
		wantCalls int32
	}{
		{
			name:      "success is cached",
			endpoint:  "https://pds.example.com",
			wantCalls: 1,
		},
		{
			name:      "no host is cached",
			err:       &atproto.Error{Kind: atproto.KindNoHostFound, Msg: "No PDS found in DID document"},
			wantCalls: 1,
		},
		{
			name:      "unsupported method is cached",
			err:       &atproto.Error{Kind: atproto.KindUnsupportedMethod, Msg: "Unsupported DID method: did:key"},
			wantCalls: 1,
		},
		{
			name:      "network error is retried",
			err:       &atproto.Error{Kind: atproto.KindNetwork, Msg: "connection refused"},
			wantCalls: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next := &fakeResolver{endpoint: tc.endpoint, err: tc.err}
			r := newTestCachingResolver(t, next)

			for i := 0; i < 3; i++ {
				got, err := r.ResolvePDS(context.Background(), "did:plc:abc")
				if got != tc.endpoint {
					t.Errorf("call %d: endpoint = %q, want %q", i, got, tc.endpoint)
				}
				if tc.err == nil && err != nil {
					t.Fatalf("call %d: unexpected error %v", i, err)
				}
				if tc.err != nil {
					if err == nil || err.Error() != tc.err.Error() {
						t.Errorf("call %d: error = %v, want %v", i, err, tc.err)
					}
					if !errors.Is(err, tc.err) {
						t.Errorf("call %d: error kind lost: %v", i, err)
					}
				}
			}

			if n := next.calls.Load(); n != tc.wantCalls {
				t.Errorf("underlying resolver called %d times, want %d", n, tc.wantCalls)
			}
		})
	}
}

func TestCachingResolverSharesConcurrentLookups(t *testing.T) {
	next := &fakeResolver{endpoint: "https://pds.example.com", release: make(chan struct{})}
	r := newTestCachingResolver(t, next)

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.ResolvePDS(context.Background(), "did:plc:abc"); err != nil {
				errs <- err
			}
		}()
	}

	// Let every caller reach the flight before it completes.
	time.Sleep(50 * time.Millisecond)
	close(next.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if n := next.calls.Load(); n != 1 {
		t.Errorf("underlying resolver called %d times, want 1", n)
	}
}

func TestShareFlightCallerCancel(t *testing.T) {
	next := &fakeResolver{endpoint: "https://pds.example.com", release: make(chan struct{})}
	defer close(next.release)
	r := newTestCachingResolver(t, next)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.ResolvePDS(ctx, "did:plc:abc")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}
