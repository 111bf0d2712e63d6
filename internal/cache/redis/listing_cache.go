package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/alphatracker/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ListingCache implements domain.ListingCache using JSON-serialized
// ListingInfo values. It fronts single-symbol listing lookups so bursts of
// verification requests for the same symbol do not hammer the upstream API.
//
// Key schema:
//
//	listing:{SYMBOL} - string value containing JSON
type ListingCache struct {
	rdb *redis.Client
}

// NewListingCache creates a ListingCache backed by the given Client.
func NewListingCache(c *Client) *ListingCache {
	return &ListingCache{rdb: c.Underlying()}
}

func listingKey(symbol string) string {
	return "listing:" + domain.NormalizeSymbol(symbol)
}

// Set stores a listing answer with the given TTL. Negative answers
// (Status=NOT_FOUND) are cached too; only verification errors stay uncached.
func (lc *ListingCache) Set(ctx context.Context, symbol string, info domain.ListingInfo, ttl time.Duration) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("redis: marshal listing %s: %w", symbol, err)
	}

	if err := lc.rdb.Set(ctx, listingKey(symbol), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set listing %s: %w", symbol, err)
	}
	return nil
}

// Get retrieves a cached listing answer.
// It returns domain.ErrNotFound when the key does not exist.
func (lc *ListingCache) Get(ctx context.Context, symbol string) (domain.ListingInfo, error) {
	data, err := lc.rdb.Get(ctx, listingKey(symbol)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ListingInfo{}, domain.ErrNotFound
		}
		return domain.ListingInfo{}, fmt.Errorf("redis: get listing %s: %w", symbol, err)
	}

	var info domain.ListingInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return domain.ListingInfo{}, fmt.Errorf("redis: unmarshal listing %s: %w", symbol, err)
	}
	return info, nil
}

// Compile-time interface check.
var _ domain.ListingCache = (*ListingCache)(nil)
