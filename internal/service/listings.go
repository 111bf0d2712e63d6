package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// ListingSource answers futures-listing lookups for a single base asset.
// *binance.Client satisfies it.
type ListingSource interface {
	CheckListing(ctx context.Context, symbol string) (domain.ListingInfo, error)
}

// CachedListings is a read-through cache in front of a ListingSource. Bursts
// of lookups for the same symbol within the TTL hit Redis instead of the
// upstream API. Only successful answers are cached; lookup errors always
// propagate and leave the cache untouched.
type CachedListings struct {
	inner  ListingSource
	cache  domain.ListingCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedListings wraps a ListingSource with a Redis-backed cache.
func NewCachedListings(inner ListingSource, cache domain.ListingCache, ttl time.Duration, logger *slog.Logger) *CachedListings {
	return &CachedListings{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "listing_cache")),
	}
}

// CheckListing returns the cached answer when present, otherwise consults the
// inner source and caches the result. Cache failures are logged and treated
// as misses.
func (cl *CachedListings) CheckListing(ctx context.Context, symbol string) (domain.ListingInfo, error) {
	info, err := cl.cache.Get(ctx, symbol)
	if err == nil {
		return info, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		cl.logger.Warn("listing cache read failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
	}

	info, err = cl.inner.CheckListing(ctx, symbol)
	if err != nil {
		return domain.ListingInfo{}, err
	}

	if cacheErr := cl.cache.Set(ctx, symbol, info, cl.ttl); cacheErr != nil {
		cl.logger.Warn("listing cache write failed", slog.String("symbol", symbol), slog.String("error", cacheErr.Error()))
	}
	return info, nil
}

// Compile-time interface check.
var _ ListingSource = (*CachedListings)(nil)
