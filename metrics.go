package main

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

var serverStartTime = time.Now()

// HTTP metrics
var (
	httpRequestsTotal atomic.Int64
	httpErrorsTotal   atomic.Int64
)

// Cache metrics
var (
	cacheHitsTotal   atomic.Int64
	cacheMissesTotal atomic.Int64
)

// Widget metrics
var (
	widgetInstancesActive     atomic.Int64
	widgetLoadsTotal          atomic.Int64
	widgetLoadFailuresTotal   atomic.Int64
	subscribeActivationsTotal atomic.Int64
)

// Event stream metrics
var (
	eventsListenersActive atomic.Int64
	eventsDroppedTotal    atomic.Int64
)

// IncrementCacheHit increments the cache hit counter
func IncrementCacheHit() {
	cacheHitsTotal.Add(1)
}

// IncrementCacheMiss increments the cache miss counter
func IncrementCacheMiss() {
	cacheMissesTotal.Add(1)
}

type metric struct {
	name, help, kind string
	value            any
}

// metricsHandler serves Prometheus-compatible metrics
func (s *server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	fmt.Fprintf(w, "# HELP sequoia_build_info Build and configuration information\n")
	fmt.Fprintf(w, "# TYPE sequoia_build_info gauge\n")
	fmt.Fprintf(w, "sequoia_build_info{cache_backend=%q,go_version=%q} 1\n\n", s.cfg.CacheBackend, runtime.Version())

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	cacheHits := cacheHitsTotal.Load()
	cacheMisses := cacheMissesTotal.Load()
	var hitRatio float64
	if total := cacheHits + cacheMisses; total > 0 {
		hitRatio = float64(cacheHits) / float64(total)
	}

	metrics := []metric{
		{"process_start_time_seconds", "Unix timestamp of process start", "gauge", serverStartTime.Unix()},
		{"process_uptime_seconds", "Time since process started", "gauge", int64(time.Since(serverStartTime).Seconds())},
		{"go_goroutines", "Number of active goroutines", "gauge", runtime.NumGoroutine()},
		{"go_memstats_alloc_bytes", "Currently allocated memory in bytes", "gauge", memStats.Alloc},
		{"go_memstats_heap_inuse_bytes", "Heap memory in use", "gauge", memStats.HeapInuse},
		{"go_gc_cycles_total", "Number of completed GC cycles", "counter", memStats.NumGC},

		{"http_requests_total", "Total number of HTTP requests", "counter", httpRequestsTotal.Load()},
		{"http_errors_total", "Total number of HTTP 5xx errors", "counter", httpErrorsTotal.Load()},

		{"cache_hits_total", "Total cache hits", "counter", cacheHits},
		{"cache_misses_total", "Total cache misses", "counter", cacheMisses},
		{"cache_hit_ratio", "Cache hit ratio (0-1)", "gauge", fmt.Sprintf("%.4f", hitRatio)},

		{"widget_instances_active", "Live widget instances", "gauge", widgetInstancesActive.Load()},
		{"widget_loads_total", "Comment loads started", "counter", widgetLoadsTotal.Load()},
		{"widget_load_failures_total", "Comment loads that ended in the error state", "counter", widgetLoadFailuresTotal.Load()},
		{"subscribe_activations_total", "Subscribe button activations", "counter", subscribeActivationsTotal.Load()},

		{"events_listeners_active", "Connected event stream listeners", "gauge", eventsListenersActive.Load()},
		{"events_dropped_total", "Events dropped for slow listeners", "counter", eventsDroppedTotal.Load()},
	}

	for i, m := range metrics {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		fmt.Fprintf(w, "%s %v\n", m.name, m.value)
	}
}
