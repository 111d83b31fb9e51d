package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// sharedFetchTimeout bounds a fetch that several callers wait on.
const sharedFetchTimeout = 15 * time.Second

// flightGroup is a singleflight.Group whose fetches run on their own context.
// The context stays alive while at least one caller waits on the fetch and is
// cancelled when the last one gives up, so a closed widget aborts its network
// request unless another widget still needs the result.
type flightGroup struct {
	group singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// join registers a waiter on key and starts the fetch unless one is running.
// join and DoChan happen under one lock so a finished flight is never reused.
func (g *flightGroup) join(ctx context.Context, key string, fn func(context.Context) (any, error)) (*flight, <-chan singleflight.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.flights == nil {
		g.flights = make(map[string]*flight)
	}
	f, ok := g.flights[key]
	if !ok {
		// Values such as request IDs carry over; cancellation does not.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		f = &flight{ctx: fctx, cancel: cancel}
		g.flights[key] = f
	}
	f.waiters++

	ch := g.group.DoChan(key, func() (any, error) {
		defer g.finish(key, f)
		return fn(f.ctx)
	})
	return f, ch
}

// finish retires a flight whose fetch returned.
func (g *flightGroup) finish(key string, f *flight) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.flights[key] == f {
		delete(g.flights, key)
	}
	f.cancel()
}

// leave drops a waiter. The last waiter to leave a flight that is still
// registered cancels its fetch and forgets the key, so the next caller starts
// a fresh one.
func (g *flightGroup) leave(key string, f *flight) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	if g.flights[key] == f {
		delete(g.flights, key)
		g.group.Forget(key)
	}
	f.cancel()
}

// shareFlight runs fn once per key among concurrent callers. Each caller
// stops waiting when its own ctx is done; fn's context is cancelled once no
// caller is waiting.
func shareFlight[T any](ctx context.Context, g *flightGroup, key string, fn func(context.Context) (T, error)) (T, error) {
	f, ch := g.join(ctx, key, func(fctx context.Context) (any, error) {
		return fn(fctx)
	})
	defer g.leave(key, f)

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			slog.Debug("singleflight: shared fetch", "key", key)
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
