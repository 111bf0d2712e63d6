package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ALPHATRACKER_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ALPHATRACKER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Binance ──
	setStr(&cfg.Binance.SpotHost, "ALPHATRACKER_BINANCE_SPOT_HOST")
	setStr(&cfg.Binance.FuturesHost, "ALPHATRACKER_BINANCE_FUTURES_HOST")
	setStr(&cfg.Binance.AlphaHost, "ALPHATRACKER_BINANCE_ALPHA_HOST")
	setInt(&cfg.Binance.RetryMaxAttempts, "ALPHATRACKER_BINANCE_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.Binance.RetryBaseDelay, "ALPHATRACKER_BINANCE_RETRY_BASE_DELAY")
	setDuration(&cfg.Binance.RateLimitCooldown, "ALPHATRACKER_BINANCE_RATE_LIMIT_COOLDOWN")
	setDuration(&cfg.Binance.MinRequestGap, "ALPHATRACKER_BINANCE_MIN_REQUEST_GAP")
	setDuration(&cfg.Binance.UniverseTimeout, "ALPHATRACKER_BINANCE_UNIVERSE_TIMEOUT")
	setDuration(&cfg.Binance.ListingTimeout, "ALPHATRACKER_BINANCE_LISTING_TIMEOUT")
	setDuration(&cfg.Binance.TickerTimeout, "ALPHATRACKER_BINANCE_TICKER_TIMEOUT")

	// ── Reconcile ──
	setDuration(&cfg.Reconcile.FreshnessThreshold, "ALPHATRACKER_RECONCILE_FRESHNESS_THRESHOLD")
	setInt(&cfg.Reconcile.BatchSize, "ALPHATRACKER_RECONCILE_BATCH_SIZE")
	setDuration(&cfg.Reconcile.BatchPause, "ALPHATRACKER_RECONCILE_BATCH_PAUSE")
	setDuration(&cfg.Reconcile.Interval, "ALPHATRACKER_RECONCILE_INTERVAL")
	setDuration(&cfg.Reconcile.ListingCacheTTL, "ALPHATRACKER_RECONCILE_LISTING_CACHE_TTL")

	// ── Prices ──
	setBool(&cfg.Prices.Enabled, "ALPHATRACKER_PRICES_ENABLED")
	setDuration(&cfg.Prices.Interval, "ALPHATRACKER_PRICES_INTERVAL")
	setInt(&cfg.Prices.HistoryDays, "ALPHATRACKER_PRICES_HISTORY_DAYS")
	setInt(&cfg.Prices.MaxConcurrent, "ALPHATRACKER_PRICES_MAX_CONCURRENT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ALPHATRACKER_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "ALPHATRACKER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ALPHATRACKER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ALPHATRACKER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ALPHATRACKER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ALPHATRACKER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ALPHATRACKER_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ALPHATRACKER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ALPHATRACKER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ALPHATRACKER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ALPHATRACKER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ALPHATRACKER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ALPHATRACKER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ALPHATRACKER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ALPHATRACKER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ALPHATRACKER_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ALPHATRACKER_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ALPHATRACKER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ALPHATRACKER_S3_REGION")
	setStr(&cfg.S3.Bucket, "ALPHATRACKER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ALPHATRACKER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ALPHATRACKER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ALPHATRACKER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ALPHATRACKER_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ALPHATRACKER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ALPHATRACKER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ALPHATRACKER_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ALPHATRACKER_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ALPHATRACKER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ALPHATRACKER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ALPHATRACKER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ALPHATRACKER_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ALPHATRACKER_MODE")
	setStr(&cfg.LogLevel, "ALPHATRACKER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
