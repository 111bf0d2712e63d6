package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/alphatracker/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the lock key only when it still holds the caller's
// token, so a holder whose TTL already expired cannot release a lock that
// another instance has since taken.
const unlockScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// LockManager hands out distributed locks via SETNX with a TTL. The
// orchestrator takes one per reconciliation pass so that only a single
// tracker instance runs a pass at a time.
type LockManager struct {
	rdb    *redis.Client
	unlock *redis.Script
}

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:    c.Underlying(),
		unlock: redis.NewScript(unlockScript),
	}
}

func lockKey(key string) string {
	return "lock:" + key
}

// Acquire takes the lock for key with the given TTL and returns a release
// function that may be called more than once. A lock held by someone else
// surfaces as domain.ErrLockHeld.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := lockKey(key)

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true

		// The caller's context is often already cancelled at release time,
		// so the unlock runs on its own deadline.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = lm.unlock.Run(unlockCtx, lm.rdb, []string{lk}, token).Err()
	}

	return release, nil
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)
