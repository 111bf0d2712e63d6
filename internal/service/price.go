package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/alphatracker/internal/domain"
	"github.com/alanyoungcy/alphatracker/internal/platform/binance"
)

// TickerSource fetches 24h spot statistics for a base asset.
// *binance.Client satisfies it.
type TickerSource interface {
	Ticker24h(ctx context.Context, symbol string) (binance.Ticker, error)
}

// PriceUpdater periodically refreshes the latest price of every tracked token
// and appends a sample to the price history.
type PriceUpdater struct {
	store         domain.TokenStore
	history       domain.PriceHistoryStore
	tickers       TickerSource
	cache         domain.PriceCache
	bus           domain.SignalBus
	maxConcurrent int
	historyDays   int
	logger        *slog.Logger
	now           func() time.Time
}

// PriceUpdaterConfig holds the tunables of a PriceUpdater.
type PriceUpdaterConfig struct {
	MaxConcurrent int
	HistoryDays   int
}

// NewPriceUpdater creates a PriceUpdater. bus may be nil when no live feed is
// wanted.
func NewPriceUpdater(
	store domain.TokenStore,
	history domain.PriceHistoryStore,
	tickers TickerSource,
	cache domain.PriceCache,
	bus domain.SignalBus,
	cfg PriceUpdaterConfig,
	logger *slog.Logger,
) *PriceUpdater {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 4
	}
	return &PriceUpdater{
		store:         store,
		history:       history,
		tickers:       tickers,
		cache:         cache,
		bus:           bus,
		maxConcurrent: cfg.MaxConcurrent,
		historyDays:   cfg.HistoryDays,
		logger:        logger.With(slog.String("component", "price_updater")),
		now:           time.Now,
	}
}

// priceTick is the payload published on the prices channel.
type priceTick struct {
	Symbol       string    `json:"symbol"`
	PriceUSDT    float64   `json:"price_usdt"`
	Change24hPct float64   `json:"change_24h_pct"`
	Volume24h    float64   `json:"volume_24h"`
	At           time.Time `json:"at"`
}

// UpdateOnce refreshes prices for every tracked token. Tokens are processed
// concurrently with per-token isolation: one failing ticker does not stop the
// cycle. It returns the number of tokens updated.
func (p *PriceUpdater) UpdateOnce(ctx context.Context) (int, error) {
	tokens, err := p.store.ListTracked(ctx)
	if err != nil {
		return 0, fmt.Errorf("price update: list tracked: %w", err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)
	results := make([]error, len(tokens))

	for i, t := range tokens {
		i, symbol := i, t.Symbol
		g.Go(func() error {
			results[i] = p.updateOne(gctx, symbol)
			return nil
		})
	}
	_ = g.Wait()

	updated := 0
	for i, err := range results {
		if err == nil {
			updated++
			continue
		}
		level := slog.LevelWarn
		if errors.Is(err, domain.ErrNotFound) {
			// No spot pair yet is routine for young alpha tokens.
			level = slog.LevelDebug
		}
		p.logger.Log(ctx, level, "price update skipped",
			slog.String("symbol", tokens[i].Symbol),
			slog.String("error", err.Error()),
		)
	}

	p.logger.Info("price cycle complete", slog.Int("tracked", len(tokens)), slog.Int("updated", updated))
	return updated, nil
}

// updateOne refreshes a single token: ticker lookup, cache write, history
// append, live tick publish.
func (p *PriceUpdater) updateOne(ctx context.Context, symbol string) error {
	ticker, err := p.tickers.Ticker24h(ctx, symbol)
	if err != nil {
		return err
	}

	at := p.now().UTC()
	if err := p.cache.SetPrice(ctx, symbol, ticker.LastPrice, at); err != nil {
		p.logger.Warn("price cache write failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
	}

	if err := p.history.Insert(ctx, domain.PricePoint{
		Symbol:     domain.NormalizeSymbol(symbol),
		PriceUSDT:  ticker.LastPrice,
		Volume24h:  ticker.Volume24h,
		RecordedAt: at,
	}); err != nil {
		return err
	}

	if p.bus != nil {
		payload, err := json.Marshal(priceTick{
			Symbol:       domain.NormalizeSymbol(symbol),
			PriceUSDT:    ticker.LastPrice,
			Change24hPct: ticker.Change24hPct,
			Volume24h:    ticker.Volume24h,
			At:           at,
		})
		if err == nil {
			if err := p.bus.Publish(ctx, domain.ChannelPrices, payload); err != nil {
				p.logger.Warn("price tick publish failed",
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return nil
}

// Prune removes history samples older than the retention window and returns
// the number of rows deleted. A non-positive retention disables pruning.
func (p *PriceUpdater) Prune(ctx context.Context) (int64, error) {
	if p.historyDays <= 0 {
		return 0, nil
	}
	cutoff := p.now().UTC().AddDate(0, 0, -p.historyDays)
	n, err := p.history.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("price history prune: %w", err)
	}
	if n > 0 {
		p.logger.Info("pruned price history", slog.Int64("rows", n))
	}
	return n, nil
}
