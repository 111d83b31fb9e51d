package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig represents server.json plus environment overrides
type ServerConfig struct {
	Port          string   `json:"port"`
	PLCURL        string   `json:"plcUrl"`        // did:plc directory
	AppViewURL    string   `json:"appViewUrl"`    // public Bluesky AppView
	CallbackURI   string   `json:"callbackUri"`   // default relay endpoint for subscribe
	CacheBackend  string   `json:"cacheBackend"`  // memory, redis or memcached
	RedisURL      string   `json:"redisUrl"`      // redis://[:password@]host:port/db
	MemcachedAddr string   `json:"memcachedAddr"` // host:port
	CachePrefix   string   `json:"cachePrefix"`
	CSRFSecret    string   `json:"csrfSecret"`    // shared across replicas; random when empty
	AllowOrigins  []string `json:"allowOrigins"`  // origins allowed to probe and fetch pages; empty allows any public host

	WidgetTimeout Duration `json:"widgetTimeout"` // bound on one widget operation
	HTTPTimeout   Duration `json:"httpTimeout"`   // outbound request timeout
}

// Duration decodes "10s"-style strings from JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

var (
	serverConfig     *ServerConfig
	serverConfigMu   sync.RWMutex
	serverConfigOnce sync.Once
)

// GetServerConfig returns the current server configuration (thread-safe)
func GetServerConfig() *ServerConfig {
	serverConfigOnce.Do(func() {
		serverConfigMu.Lock()
		defer serverConfigMu.Unlock()
		if serverConfig == nil {
			serverConfig = loadServerConfig()
		}
	})

	serverConfigMu.RLock()
	defer serverConfigMu.RUnlock()
	return serverConfig
}

// ReloadServerConfig re-reads the file and environment
func ReloadServerConfig() *ServerConfig {
	newConfig := loadServerConfig()
	serverConfigMu.Lock()
	defer serverConfigMu.Unlock()
	serverConfig = newConfig
	slog.Info("server configuration reloaded", "cache", newConfig.CacheBackend)
	return newConfig
}

func loadServerConfig() *ServerConfig {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env", "error", err)
	}

	configPath := os.Getenv("SEQUOIA_CONFIG")
	if configPath == "" {
		configPath = "config/server.json"
	}
	return LoadServerConfig(configPath, os.Getenv)
}

// LoadServerConfig reads path (missing or invalid files fall back to
// defaults) and applies overrides from getenv.
func LoadServerConfig(path string, getenv func(string) string) *ServerConfig {
	cfg := DefaultServerConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		slog.Debug("server config file not found, using defaults", "path", path)
	case err != nil:
		slog.Warn("could not read server config, using defaults", "path", path, "error", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			slog.Error("invalid JSON in server config, using defaults", "path", path, "error", err)
			cfg = DefaultServerConfig()
		}
	}

	applyEnv(cfg, getenv)
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))
	return cfg
}

func applyEnv(cfg *ServerConfig, getenv func(string) string) {
	str := map[string]*string{
		"PORT":           &cfg.Port,
		"PLC_URL":        &cfg.PLCURL,
		"APPVIEW_URL":    &cfg.AppViewURL,
		"CALLBACK_URI":   &cfg.CallbackURI,
		"CACHE_BACKEND":  &cfg.CacheBackend,
		"REDIS_URL":      &cfg.RedisURL,
		"MEMCACHED_ADDR": &cfg.MemcachedAddr,
		"CSRF_SECRET":    &cfg.CSRFSecret,
	}
	for key, dst := range str {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	dur := map[string]*Duration{
		"WIDGET_TIMEOUT": &cfg.WidgetTimeout,
		"HTTP_TIMEOUT":   &cfg.HTTPTimeout,
	}
	for key, dst := range dur {
		v := getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			slog.Warn("ignoring invalid duration", "env", key, "value", v)
			continue
		}
		dst.Duration = d
	}

	if v := getenv("ALLOW_ORIGINS"); v != "" {
		cfg.AllowOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, o)
			}
		}
	}
}

// DefaultServerConfig returns the built-in configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:          "3000",
		PLCURL:        "https://plc.directory",
		AppViewURL:    "https://public.api.bsky.app",
		CallbackURI:   "https://sequoia.pub/subscribe",
		CacheBackend:  "memory",
		CachePrefix:   "sequoia:",
		WidgetTimeout: Duration{15 * time.Second},
		HTTPTimeout:   Duration{10 * time.Second},
	}
}

// OriginAllowed reports whether origin may be probed or fetched on behalf of a
// widget. An empty allow-list permits every origin.
func (c *ServerConfig) OriginAllowed(origin string) bool {
	if len(c.AllowOrigins) == 0 {
		return true
	}
	origin = strings.TrimRight(origin, "/")
	for _, o := range c.AllowOrigins {
		if strings.EqualFold(strings.TrimRight(o, "/"), origin) {
			return true
		}
	}
	return false
}
