package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/alphatracker/internal/blob/s3"
	"github.com/alanyoungcy/alphatracker/internal/cache/redis"
	"github.com/alanyoungcy/alphatracker/internal/config"
	"github.com/alanyoungcy/alphatracker/internal/domain"
	"github.com/alanyoungcy/alphatracker/internal/notify"
	"github.com/alanyoungcy/alphatracker/internal/platform/binance"
	"github.com/alanyoungcy/alphatracker/internal/service"
	"github.com/alanyoungcy/alphatracker/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	TokenStore   domain.TokenStore
	HistoryStore domain.PriceHistoryStore

	// Caches and coordination
	ListingCache domain.ListingCache
	PriceCache   domain.PriceCache
	LockManager  domain.LockManager
	SignalBus    domain.SignalBus

	// Snapshot archive; nil when S3 is disabled.
	Snapshots *s3blob.SnapshotArchive

	// Upstream client
	Binance *binance.Client

	// Notifications
	Notifier *notify.Notifier

	// Services
	Tokens     *service.TokenService
	Verifier   *service.Verifier
	Reconciler *service.Reconciler
	Prices     *service.PriceUpdater
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	tokenStore := postgres.NewTokenStore(pool)
	deps.TokenStore = tokenStore
	deps.HistoryStore = postgres.NewPriceHistoryStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.ListingCache = redis.NewListingCache(redisClient)
	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 snapshot archive (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Snapshots = s3blob.NewSnapshotArchive(s3Client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Upstream client ---
	deps.Binance = binance.NewClient(binance.Config{
		SpotHost:          cfg.Binance.SpotHost,
		FuturesHost:       cfg.Binance.FuturesHost,
		AlphaHost:         cfg.Binance.AlphaHost,
		RetryMaxAttempts:  cfg.Binance.RetryMaxAttempts,
		RetryBaseDelay:    cfg.Binance.RetryBaseDelay.Duration,
		RateLimitCooldown: cfg.Binance.RateLimitCooldown.Duration,
		MinRequestGap:     cfg.Binance.MinRequestGap.Duration,
		UniverseTimeout:   cfg.Binance.UniverseTimeout.Duration,
		ListingTimeout:    cfg.Binance.ListingTimeout.Duration,
		TickerTimeout:     cfg.Binance.TickerTimeout.Duration,
	}, logger)

	// --- Services ---
	listings := service.NewCachedListings(
		deps.Binance, deps.ListingCache, cfg.Reconcile.ListingCacheTTL.Duration, logger,
	)

	onListed := listedCallback(deps.SignalBus, deps.Notifier, logger)

	deps.Tokens = service.NewTokenService(tokenStore, deps.HistoryStore, logger)
	deps.Verifier = service.NewVerifier(tokenStore, listings, onListed, logger)
	deps.Reconciler = service.NewReconciler(
		deps.Binance, tokenStore, listings,
		service.NewFreshness(cfg.Reconcile.FreshnessThreshold.Duration),
		service.ReconcilerConfig{
			BatchSize:  cfg.Reconcile.BatchSize,
			BatchPause: cfg.Reconcile.BatchPause.Duration,
		},
		onListed, logger,
	)
	deps.Prices = service.NewPriceUpdater(
		tokenStore, deps.HistoryStore, deps.Binance, deps.PriceCache, deps.SignalBus,
		service.PriceUpdaterConfig{
			MaxConcurrent: cfg.Prices.MaxConcurrent,
			HistoryDays:   cfg.Prices.HistoryDays,
		},
		logger,
	)

	return deps, cleanup, nil
}

// listedCallback fans a verdict flipping to listed out to the notifier and
// the signal bus.
func listedCallback(bus domain.SignalBus, notifier *notify.Notifier, logger *slog.Logger) service.ListedFunc {
	return func(ctx context.Context, symbol string, listing domain.ListingInfo) {
		if notifier != nil {
			title, msg := notify.FuturesListedAlert(symbol, listing)
			if err := notifier.Notify(ctx, notify.EventFuturesListed, title, msg); err != nil {
				logger.Warn("futures listed notification failed",
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
			}
		}
		if bus != nil {
			payload, err := json.Marshal(map[string]any{
				"symbol":          symbol,
				"contract_symbol": listing.ContractSymbol,
				"status":          listing.Status,
			})
			if err == nil {
				if err := bus.Publish(ctx, domain.ChannelListings, payload); err != nil {
					logger.Warn("listing event publish failed",
						slog.String("symbol", symbol),
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}
}
