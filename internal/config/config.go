// Package config defines the top-level configuration for the alpha token
// tracker and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ALPHATRACKER_* environment variables.
type Config struct {
	Binance   BinanceConfig   `toml:"binance"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Prices    PricesConfig    `toml:"prices"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// BinanceConfig holds upstream API endpoints and the client's resilience
// parameters (retry, backoff, rate limiting).
type BinanceConfig struct {
	SpotHost    string `toml:"spot_host"`
	FuturesHost string `toml:"futures_host"`
	AlphaHost   string `toml:"alpha_host"`

	// RetryMaxAttempts is the total number of attempts per request,
	// including the first one.
	RetryMaxAttempts int `toml:"retry_max_attempts"`
	// RetryBaseDelay is multiplied by the attempt number between retries.
	RetryBaseDelay duration `toml:"retry_base_delay"`
	// RateLimitCooldown is the extra wait after an HTTP 429, on top of the
	// regular backoff schedule.
	RateLimitCooldown duration `toml:"rate_limit_cooldown"`
	// MinRequestGap is the minimum spacing between consecutive listing
	// lookups issued by one client instance.
	MinRequestGap duration `toml:"min_request_gap"`

	UniverseTimeout duration `toml:"universe_timeout"`
	ListingTimeout  duration `toml:"listing_timeout"`
	TickerTimeout   duration `toml:"ticker_timeout"`
}

// ReconcileConfig holds the reconciliation engine's tunables.
type ReconcileConfig struct {
	// FreshnessThreshold is the age below which a cached futures-listing
	// verdict is reused without re-querying upstream.
	FreshnessThreshold duration `toml:"freshness_threshold"`
	// BatchSize is the number of verifications run concurrently per batch.
	BatchSize int `toml:"batch_size"`
	// BatchPause is the pause between verification batches.
	BatchPause duration `toml:"batch_pause"`
	// Interval is the period of the scheduled reconciliation loop.
	Interval duration `toml:"interval"`
	// ListingCacheTTL is the TTL of the read-through cache in front of
	// single-symbol listing lookups.
	ListingCacheTTL duration `toml:"listing_cache_ttl"`
}

// PricesConfig holds the price update cycle parameters.
type PricesConfig struct {
	Enabled       bool     `toml:"enabled"`
	Interval      duration `toml:"interval"`
	HistoryDays   int      `toml:"history_days"`
	MaxConcurrent int      `toml:"max_concurrent"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for snapshot
// archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Binance: BinanceConfig{
			SpotHost:          "https://api.binance.com",
			FuturesHost:       "https://fapi.binance.com",
			AlphaHost:         "https://www.binance.com",
			RetryMaxAttempts:  3,
			RetryBaseDelay:    duration{1000 * time.Millisecond},
			RateLimitCooldown: duration{2000 * time.Millisecond},
			MinRequestGap:     duration{100 * time.Millisecond},
			UniverseTimeout:   duration{30 * time.Second},
			ListingTimeout:    duration{8 * time.Second},
			TickerTimeout:     duration{5 * time.Second},
		},
		Reconcile: ReconcileConfig{
			FreshnessThreshold: duration{24 * time.Hour},
			BatchSize:          5,
			BatchPause:         duration{300 * time.Millisecond},
			Interval:           duration{5 * time.Minute},
			ListingCacheTTL:    duration{5 * time.Minute},
		},
		Prices: PricesConfig{
			Enabled:       true,
			Interval:      duration{30 * time.Second},
			HistoryDays:   90,
			MaxConcurrent: 4,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "alphatracker",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "alphatracker-snapshots",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"futures_listed", "reconcile_failed", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve": true,
	"track": true,
	"full":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var problems []string

	if !validModes[strings.ToLower(c.Mode)] {
		problems = append(problems, fmt.Sprintf("mode %q is not one of serve/track/full", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		problems = append(problems, fmt.Sprintf("log_level %q is not one of debug/info/warn/error", c.LogLevel))
	}

	if c.Binance.SpotHost == "" || c.Binance.FuturesHost == "" || c.Binance.AlphaHost == "" {
		problems = append(problems, "binance hosts must all be set")
	}
	if c.Binance.RetryMaxAttempts < 1 {
		problems = append(problems, "binance.retry_max_attempts must be >= 1")
	}
	if c.Binance.MinRequestGap.Duration < 0 {
		problems = append(problems, "binance.min_request_gap must not be negative")
	}

	if c.Reconcile.FreshnessThreshold.Duration <= 0 {
		problems = append(problems, "reconcile.freshness_threshold must be positive")
	}
	if c.Reconcile.BatchSize < 1 {
		problems = append(problems, "reconcile.batch_size must be >= 1")
	}
	if c.Reconcile.Interval.Duration <= 0 {
		problems = append(problems, "reconcile.interval must be positive")
	}

	if c.Prices.Enabled && c.Prices.Interval.Duration <= 0 {
		problems = append(problems, "prices.interval must be positive when prices are enabled")
	}

	if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "") {
		problems = append(problems, "postgres requires either dsn or host/database/user")
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			problems = append(problems, "s3.bucket is required when s3 is enabled")
		}
		if c.S3.Region == "" {
			problems = append(problems, "s3.region is required when s3 is enabled")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
