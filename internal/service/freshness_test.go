package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFreshness(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := NewFreshness(24 * time.Hour)

	t.Run("nil timestamp is never fresh", func(t *testing.T) {
		assert.False(t, f.Fresh(nil, now))
	})

	t.Run("just inside the window", func(t *testing.T) {
		at := now.Add(-24*time.Hour + time.Second)
		assert.True(t, f.Fresh(&at, now))
	})

	t.Run("age equal to threshold is stale", func(t *testing.T) {
		at := now.Add(-24 * time.Hour)
		assert.False(t, f.Fresh(&at, now))
	})

	t.Run("older than threshold is stale", func(t *testing.T) {
		at := now.Add(-25 * time.Hour)
		assert.False(t, f.Fresh(&at, now))
	})
}

func TestNewFreshnessDefault(t *testing.T) {
	assert.Equal(t, DefaultFreshnessThreshold, NewFreshness(0).Threshold)
	assert.Equal(t, DefaultFreshnessThreshold, NewFreshness(-time.Hour).Threshold)
	assert.Equal(t, time.Hour, NewFreshness(time.Hour).Threshold)
}
