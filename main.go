package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sequoia-server/internal/auth"
	"sequoia-server/internal/cache"
	"sequoia-server/internal/config"
)

func main() {
	InitLogger()
	initTemplates()

	cfg := config.GetServerConfig()

	store, err := cache.New(cache.BackendConfig{
		Kind:          cfg.CacheBackend,
		RedisURL:      cfg.RedisURL,
		MemcachedAddr: cfg.MemcachedAddr,
		Prefix:        cfg.CachePrefix,
	})
	if err != nil {
		slog.Error("failed to initialize cache", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	csrf, err := newCSRFManager(cfg)
	if err != nil {
		slog.Error("failed to initialize CSRF protection", "error", err)
		os.Exit(1)
	}

	srv, err := newServer(cfg, store, csrf)
	if err != nil {
		slog.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("starting server", "port", cfg.Port, "cache", cfg.CacheBackend, "appview", cfg.AppViewURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	srv.events.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("graceful shutdown failed", "error", err)
	}
	srv.instances.closeAll()
}

func newCSRFManager(cfg *config.ServerConfig) (*auth.CSRFManager, error) {
	if cfg.CSRFSecret != "" {
		return auth.NewCSRFManager([]byte(cfg.CSRFSecret), 0), nil
	}
	slog.Warn("CSRF_SECRET not set, using a random secret; tokens will not survive restarts")
	return auth.NewCSRFManagerWithRandomSecret(0)
}
