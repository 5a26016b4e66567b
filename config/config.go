// Package config builds the process-wide configuration object. It is loaded
// once at start-up and passed by pointer into every constructor; nothing
// mutates it afterwards.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Browser      BrowserConfig
	Scraper      ScraperConfig
	VesselFinder VesselFinderConfig
	Analytics    AnalyticsConfig
	Trigger      TriggerConfig
	DataDocked   DataDockedConfig
	Mongo        MongoConfig
	Redis        RedisConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Log          LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `env:"VESSELSCOUT_HOST, default=0.0.0.0"`
	Port int    `env:"VESSELSCOUT_PORT, default=8080"`
	// Mode is "debug", "release" or "test".
	Mode string `env:"VESSELSCOUT_MODE, default=release"`
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless is the default for requests that do not say otherwise.
	Headless bool `env:"VESSELSCOUT_HEADLESS, default=true"`

	// MaxSessions caps concurrent incognito sessions in server mode.
	MaxSessions int `env:"VESSELSCOUT_MAX_SESSIONS, default=4"`

	// DefaultProxy is the proxy URL for browser and fallback traffic.
	DefaultProxy string `env:"VESSELSCOUT_PROXY"`

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `env:"VESSELSCOUT_NO_SANDBOX, default=false"`

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `env:"VESSELSCOUT_BROWSER_BIN"`
}

// ScraperConfig controls one scrape invocation.
type ScraperConfig struct {
	// Timeout bounds the whole invocation, sinks excluded.
	Timeout time.Duration `env:"VESSELSCOUT_TIMEOUT, default=90s"`

	// NavigationTimeout bounds page navigation alone.
	NavigationTimeout time.Duration `env:"VESSELSCOUT_NAV_TIMEOUT, default=30s"`

	// SettleMax is the worst-case wait for dynamic content after
	// navigation. The readiness predicate usually returns well before.
	SettleMax time.Duration `env:"VESSELSCOUT_SETTLE_MAX, default=10s"`

	// NetworkIdle is the quiet period that counts as "network idle".
	NetworkIdle time.Duration `env:"VESSELSCOUT_NETWORK_IDLE, default=1500ms"`

	// ExpandContent clicks detail tabs and scrolls before extraction.
	ExpandContent bool `env:"VESSELSCOUT_EXPAND_CONTENT, default=true"`

	// BlockedResourceTypes are aborted by the request hijacker.
	BlockedResourceTypes []string `env:"VESSELSCOUT_BLOCKED_RESOURCES, default=Image,Font,Media"`

	// BlockTrackers aborts requests to known ad and analytics hosts.
	BlockTrackers bool `env:"VESSELSCOUT_BLOCK_TRACKERS, default=true"`

	// MaxCaptureBytes caps the body size kept per captured response.
	MaxCaptureBytes int `env:"VESSELSCOUT_MAX_CAPTURE_BYTES, default=2097152"`
}

// VesselFinderConfig holds the optional VesselFinder account.
type VesselFinderConfig struct {
	Email    string `env:"VESSELFINDER_EMAIL"`
	Password string `env:"VESSELFINDER_PASSWORD"`
}

// HasCredentials reports whether a login should be attempted.
func (c VesselFinderConfig) HasCredentials() bool {
	return c.Email != "" && c.Password != ""
}

// AnalyticsConfig controls the PostHog sink.
type AnalyticsConfig struct {
	APIKey  string        `env:"POSTHOG_API_KEY"`
	Host    string        `env:"POSTHOG_HOST, default=https://app.posthog.com"`
	Timeout time.Duration `env:"POSTHOG_TIMEOUT, default=10s"`
}

// Enabled reports whether events can be sent.
func (c AnalyticsConfig) Enabled() bool { return c.APIKey != "" }

// TriggerConfig controls the GitHub repository_dispatch client.
type TriggerConfig struct {
	Token   string        `env:"GITHUB_TOKEN"`
	Owner   string        `env:"GITHUB_REPO_OWNER"`
	Repo    string        `env:"GITHUB_REPO_NAME, default=marine-traffic-scrapping"`
	APIBase string        `env:"GITHUB_API_URL, default=https://api.github.com"`
	Timeout time.Duration `env:"GITHUB_DISPATCH_TIMEOUT, default=30s"`

	// DedupTTL suppresses identical trigger requests within the window.
	// Zero disables de-duplication.
	DedupTTL time.Duration `env:"VESSELSCOUT_TRIGGER_DEDUP_TTL, default=10m"`
}

// Enabled reports whether dispatches can be sent.
func (c TriggerConfig) Enabled() bool {
	return c.Token != "" && c.Owner != "" && c.Repo != ""
}

// DataDockedConfig controls the secondary data-source client.
type DataDockedConfig struct {
	APIKey  string        `env:"DATADOCKED_API_KEY"`
	BaseURL string        `env:"DATADOCKED_BASE_URL, default=https://datadocked.com/api"`
	Timeout time.Duration `env:"DATADOCKED_TIMEOUT, default=20s"`
}

// Enabled reports whether the secondary source can be queried.
func (c DataDockedConfig) Enabled() bool { return c.APIKey != "" }

// MongoConfig controls the persistence store. An empty URI selects the
// in-memory store.
type MongoConfig struct {
	URI        string        `env:"MONGO_URI"`
	Database   string        `env:"MONGO_DB, default=vesselscout"`
	Collection string        `env:"MONGO_COLLECTION, default=ships"`
	Timeout    time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

// RedisConfig controls trigger de-duplication. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool     `env:"VESSELSCOUT_AUTH_ENABLED, default=true"`
	APIKeys []string `env:"VESSELSCOUT_API_KEYS"`
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 `env:"VESSELSCOUT_RATE_RPS, default=0.5"`
	Burst             int     `env:"VESSELSCOUT_RATE_BURST, default=3"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `env:"VESSELSCOUT_LOG_LEVEL, default=info"`
	// Format is "json" or "text".
	Format string `env:"VESSELSCOUT_LOG_FORMAT, default=text"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Scraper.SettleMax <= 0 {
		return fmt.Errorf("config: VESSELSCOUT_SETTLE_MAX must be positive")
	}
	if c.Scraper.Timeout < c.Scraper.NavigationTimeout+c.Scraper.SettleMax {
		return fmt.Errorf("config: VESSELSCOUT_TIMEOUT (%s) is shorter than navigation plus settle (%s)",
			c.Scraper.Timeout, c.Scraper.NavigationTimeout+c.Scraper.SettleMax)
	}
	if c.Browser.MaxSessions < 1 {
		return fmt.Errorf("config: VESSELSCOUT_MAX_SESSIONS must be at least 1")
	}
	return nil
}
