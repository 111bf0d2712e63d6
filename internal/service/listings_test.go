package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// fakeListingCache is an in-memory domain.ListingCache.
type fakeListingCache struct {
	mu      sync.Mutex
	entries map[string]domain.ListingInfo
	getErr  error
	setErr  error
	sets    int
}

func newFakeListingCache() *fakeListingCache {
	return &fakeListingCache{entries: make(map[string]domain.ListingInfo)}
}

func (c *fakeListingCache) Get(ctx context.Context, symbol string) (domain.ListingInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return domain.ListingInfo{}, c.getErr
	}
	info, ok := c.entries[symbol]
	if !ok {
		return domain.ListingInfo{}, domain.ErrNotFound
	}
	return info, nil
}

func (c *fakeListingCache) Set(ctx context.Context, symbol string, info domain.ListingInfo, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[symbol] = info
	c.sets++
	return nil
}

func TestCachedListingsReadThrough(t *testing.T) {
	inner := newFakeListings()
	inner.infos["ZORA"] = availableListing("ZORAUSDT")
	cache := newFakeListingCache()

	cl := NewCachedListings(inner, cache, time.Minute, slog.New(slog.DiscardHandler))

	first, err := cl.CheckListing(context.Background(), "ZORA")
	require.NoError(t, err)
	assert.True(t, first.Available)
	assert.Equal(t, 1, inner.callCount())

	// Second lookup within the TTL is served from the cache.
	second, err := cl.CheckListing(context.Background(), "ZORA")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.callCount())
}

func TestCachedListingsCachesNegativeAnswers(t *testing.T) {
	inner := newFakeListings() // NOT_FOUND by default
	cache := newFakeListingCache()

	cl := NewCachedListings(inner, cache, time.Minute, slog.New(slog.DiscardHandler))

	info, err := cl.CheckListing(context.Background(), "GHOST")
	require.NoError(t, err)
	assert.False(t, info.Available)
	assert.Equal(t, domain.ListingStatusNotFound, info.Status)
	assert.Equal(t, 1, cache.sets)
}

func TestCachedListingsDoesNotCacheErrors(t *testing.T) {
	inner := newFakeListings()
	inner.errs["ZORA"] = errors.New("boom")
	cache := newFakeListingCache()

	cl := NewCachedListings(inner, cache, time.Minute, slog.New(slog.DiscardHandler))

	_, err := cl.CheckListing(context.Background(), "ZORA")
	require.Error(t, err)
	assert.Zero(t, cache.sets)
}

func TestCachedListingsCacheFailureIsAMiss(t *testing.T) {
	inner := newFakeListings()
	inner.infos["ZORA"] = availableListing("ZORAUSDT")
	cache := newFakeListingCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")

	cl := NewCachedListings(inner, cache, time.Minute, slog.New(slog.DiscardHandler))

	info, err := cl.CheckListing(context.Background(), "ZORA")
	require.NoError(t, err)
	assert.True(t, info.Available)
	assert.Equal(t, 1, inner.callCount())
}
