package domain

import (
	"context"
	"time"
)

// ListingCache is a short-lived read-through cache in front of the upstream
// listing lookup, absorbing bursts of identical on-demand requests without
// violating the client's minimum-spacing rule.
type ListingCache interface {
	Get(ctx context.Context, symbol string) (ListingInfo, error)
	Set(ctx context.Context, symbol string, info ListingInfo, ttl time.Duration) error
}

// PriceCache provides fast access to the latest price per symbol.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, symbol string) (float64, time.Time, error)
}

// LockManager provides distributed locking, used to keep scheduled
// reconciliation passes from overlapping across processes.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out of reconciliation and price events to
// the WebSocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Well-known SignalBus channels.
const (
	ChannelPrices    = "events:prices"
	ChannelReconcile = "events:reconcile"
	ChannelListings  = "events:listings"
)
