package service

import "time"

// Freshness decides whether a cached futures-listing verdict is recent enough
// to reuse without re-querying upstream.
type Freshness struct {
	// Threshold is the maximum age of a reusable verdict.
	Threshold time.Duration
}

// DefaultFreshnessThreshold is used when no threshold is configured.
const DefaultFreshnessThreshold = 24 * time.Hour

// NewFreshness creates a Freshness policy, falling back to the default
// threshold when the given one is not positive.
func NewFreshness(threshold time.Duration) Freshness {
	if threshold <= 0 {
		threshold = DefaultFreshnessThreshold
	}
	return Freshness{Threshold: threshold}
}

// Fresh reports whether a verdict verified at lastVerifiedAt is still fresh
// at the given instant. A nil timestamp is never fresh; an age exactly equal
// to the threshold is stale.
func (f Freshness) Fresh(lastVerifiedAt *time.Time, now time.Time) bool {
	if lastVerifiedAt == nil {
		return false
	}
	return now.Sub(*lastVerifiedAt) < f.Threshold
}
