package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// envPrefix is prepended to every environment variable name.
const envPrefix = "THREADSCOPE_"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Crawl     CrawlConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Profiles  ProfilesConfig
	Webhook   WebhookConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent crawls).
	MaxPages int // default: 4

	// DefaultProxy is the proxy URL for the browser and the HTTP engine.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth injects the anti-detection script into every page.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types to block. Images stay
	// enabled by default so lazy loaders populate their src attributes.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string

	// BlockAds drops requests to known ad and tracking hosts.
	BlockAds bool // default: true
}

// CrawlConfig bounds crawl runs.
type CrawlConfig struct {
	// DefaultTimeout applies when a request gives none.
	DefaultTimeout time.Duration // default: 120s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 600s

	// NavigationTimeout is the max time for one page load attempt.
	NavigationTimeout time.Duration // default: 60s

	// NavRetries is the number of extra attempts after a failed page load.
	NavRetries int // default: 2

	// RetryBase is the first retry delay, doubled for each attempt.
	RetryBase time.Duration // default: 500ms

	// PagesPerSecond paces page loads within one crawl; 0 disables pacing.
	PagesPerSecond float64 // default: 1
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the extract result cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached results.
	MaxEntries int // default: 200

	// TTL is how long a result stays fresh when the request sets no maxAge.
	TTL time.Duration // default: 10m
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// ProfilesConfig locates user site profiles.
type ProfilesConfig struct {
	// Dir holds *.yaml profiles layered over the built-in ones.
	// default: $XDG_CONFIG_HOME/threadscope/profiles
	Dir string
}

// WebhookConfig controls crawl completion callbacks.
type WebhookConfig struct {
	// Timeout is the per-attempt HTTP timeout.
	Timeout time.Duration // default: 10s
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("HOST", "0.0.0.0"),
			Port: envIntOr("PORT", 8080),
			Mode: envOr("MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:             envBoolOr("HEADLESS", true),
			MaxPages:             envIntOr("MAX_PAGES", 4),
			DefaultProxy:         envOr("PROXY", ""),
			NoSandbox:            envBoolOr("NO_SANDBOX", false),
			BrowserBin:           envOr("BROWSER_BIN", ""),
			Stealth:              envBoolOr("STEALTH", true),
			BlockedResourceTypes: envSliceOr("BLOCKED_RESOURCES", []string{"Font", "Media"}),
			BlockAds:             envBoolOr("BLOCK_ADS", true),
		},
		Crawl: CrawlConfig{
			DefaultTimeout:    envDurationOr("DEFAULT_TIMEOUT", 120*time.Second),
			MaxTimeout:        envDurationOr("MAX_TIMEOUT", 600*time.Second),
			NavigationTimeout: envDurationOr("NAV_TIMEOUT", 60*time.Second),
			NavRetries:        envIntOr("NAV_RETRIES", 2),
			RetryBase:         envDurationOr("RETRY_BASE", 500*time.Millisecond),
			PagesPerSecond:    envFloatOr("PAGES_PER_SECOND", 1.0),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("AUTH_ENABLED", true),
			APIKeys: envSliceOr("API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("RATE_RPS", 2.0),
			Burst:             envIntOr("RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("CACHE_MAX_ENTRIES", 200),
			TTL:        envDurationOr("CACHE_TTL", 10*time.Minute),
		},
		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
		Profiles: ProfilesConfig{
			Dir: envOr("PROFILES_DIR", filepath.Join(xdg.ConfigHome, "threadscope", "profiles")),
		},
		Webhook: WebhookConfig{
			Timeout: envDurationOr("WEBHOOK_TIMEOUT", 10*time.Second),
		},
	}
}

// --- helper functions ---

func lookup(key string) string {
	return os.Getenv(envPrefix + key)
}

func envOr(key, fallback string) string {
	if v := lookup(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := lookup(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := lookup(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := lookup(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := lookup(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := lookup(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
