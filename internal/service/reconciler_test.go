package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

var reconcileNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestReconciler(universe UniverseSource, store domain.TokenStore, listings ListingSource, onListed ListedFunc) *Reconciler {
	r := NewReconciler(universe, store, listings, NewFreshness(24*time.Hour),
		ReconcilerConfig{BatchSize: 2}, onListed, slog.New(slog.DiscardHandler))
	r.now = func() time.Time { return reconcileNow }
	return r
}

func universeOf(symbols ...string) *fakeUniverse {
	u := &fakeUniverse{}
	for _, s := range symbols {
		u.tokens = append(u.tokens, domain.UniverseToken{Symbol: s, Name: s})
	}
	return u
}

func TestReconcileTrackedKeepsCachedVerdict(t *testing.T) {
	staleAt := reconcileNow.Add(-48 * time.Hour)
	store := newFakeTokenStore(domain.TrackedToken{
		Symbol: "ZORA", IsActive: true, Priority: 5,
		FuturesListed:    boolPtr(false),
		FuturesCheckedAt: timePtr(staleAt),
	})
	listings := newFakeListings()

	r := newTestReconciler(universeOf("ZORA"), store, listings, nil)
	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	// Tracked tokens are never re-verified during a pass, however stale.
	assert.Zero(t, listings.callCount())
	assert.Equal(t, 1, result.Tracked)
	assert.Zero(t, result.Verified)

	require.Len(t, result.Tokens, 1)
	got := result.Tokens[0]
	assert.True(t, got.IsTracked)
	require.NotNil(t, got.FuturesListed)
	assert.False(t, *got.FuturesListed)
	assert.Equal(t, staleAt, *got.LastVerifiedAt)
}

func TestReconcileReusesFreshUntrackedVerdict(t *testing.T) {
	freshAt := reconcileNow.Add(-time.Hour)
	store := newFakeTokenStore(domain.TrackedToken{
		Symbol: "PEPE", IsActive: false,
		FuturesListed:    boolPtr(true),
		FuturesCheckedAt: timePtr(freshAt),
	})
	listings := newFakeListings()

	r := newTestReconciler(universeOf("PEPE"), store, listings, nil)
	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Zero(t, listings.callCount())
	assert.Equal(t, 1, result.Reused)
	require.Len(t, result.Tokens, 1)
	require.NotNil(t, result.Tokens[0].FuturesListed)
	assert.True(t, *result.Tokens[0].FuturesListed)
}

func TestReconcileVerifiesStaleTokens(t *testing.T) {
	staleAt := reconcileNow.Add(-30 * time.Hour)
	store := newFakeTokenStore(domain.TrackedToken{
		Symbol: "PEPE", IsActive: false,
		FuturesListed:    boolPtr(false),
		FuturesCheckedAt: timePtr(staleAt),
	})
	listings := newFakeListings()
	listings.infos["PEPE"] = availableListing("PEPEUSDT")
	listings.infos["NEW"] = availableListing("NEWUSDT")

	var flipped []string
	r := newTestReconciler(universeOf("PEPE", "NEW"), store, listings, func(ctx context.Context, symbol string, listing domain.ListingInfo) {
		flipped = append(flipped, symbol)
	})

	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Verified)
	assert.Equal(t, 2, listings.callCount())

	// Both verdicts were persisted, including the never-seen symbol.
	calls := store.upsertCalls()
	assert.Len(t, calls, 2)

	for _, tok := range result.Tokens {
		require.NotNil(t, tok.FuturesListed, tok.Symbol)
		assert.True(t, *tok.FuturesListed)
		assert.Equal(t, reconcileNow, *tok.LastVerifiedAt)
	}

	assert.ElementsMatch(t, []string{"PEPE", "NEW"}, flipped)
}

func TestReconcileIsolatesPerTokenFailures(t *testing.T) {
	store := newFakeTokenStore()
	listings := newFakeListings()
	listings.infos["GOOD"] = availableListing("GOODUSDT")
	listings.errs["BAD"] = errors.New("upstream exploded")

	r := newTestReconciler(universeOf("GOOD", "BAD"), store, listings, nil)
	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Verified)
	assert.Equal(t, 1, result.Failed)

	bySymbol := make(map[string]domain.MergedToken)
	for _, tok := range result.Tokens {
		bySymbol[tok.Symbol] = tok
	}
	require.NotNil(t, bySymbol["GOOD"].FuturesListed)
	assert.Nil(t, bySymbol["BAD"].FuturesListed)

	// Only the definite verdict was persisted.
	calls := store.upsertCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "GOOD", calls[0].symbol)
}

func TestReconcileRejectsNameMismatchOnStaleRefresh(t *testing.T) {
	staleAt := reconcileNow.Add(-48 * time.Hour)
	store := newFakeTokenStore(domain.TrackedToken{
		Symbol: "RIF", Name: "RSK Infrastructure", IsActive: false,
		FuturesListed:    boolPtr(false),
		FuturesCheckedAt: timePtr(staleAt),
	})
	listings := newFakeListings()
	listings.infos["RIF"] = availableListing("RIFUSDT")

	var flipped []string
	universe := &fakeUniverse{tokens: []domain.UniverseToken{
		{Symbol: "RIF", Name: "Rifampicin Token"},
	}}
	r := newTestReconciler(universe, store, listings, func(ctx context.Context, symbol string, listing domain.ListingInfo) {
		flipped = append(flipped, symbol)
	})

	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	// An available contract under a colliding symbol is not a listing.
	require.Len(t, result.Tokens, 1)
	require.NotNil(t, result.Tokens[0].FuturesListed)
	assert.False(t, *result.Tokens[0].FuturesListed)

	calls := store.upsertCalls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].listed)
	assert.Empty(t, flipped)
}

func TestReconcileAcceptsMatchingNameOnStaleRefresh(t *testing.T) {
	staleAt := reconcileNow.Add(-48 * time.Hour)
	store := newFakeTokenStore(domain.TrackedToken{
		Symbol: "RIF", Name: "RSK Infrastructure", IsActive: false,
		FuturesListed:    boolPtr(false),
		FuturesCheckedAt: timePtr(staleAt),
	})
	listings := newFakeListings()
	listings.infos["RIF"] = availableListing("RIFUSDT")

	universe := &fakeUniverse{tokens: []domain.UniverseToken{
		{Symbol: "RIF", Name: "rsk infrastructure"},
	}}
	r := newTestReconciler(universe, store, listings, nil)

	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	// Name comparison is case-insensitive.
	require.Len(t, result.Tokens, 1)
	require.NotNil(t, result.Tokens[0].FuturesListed)
	assert.True(t, *result.Tokens[0].FuturesListed)

	calls := store.upsertCalls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].listed)
}

func TestReconcileRepeatedPassesAreIdentical(t *testing.T) {
	at := timePtr(reconcileNow.Add(-time.Hour))
	store := newFakeTokenStore(
		domain.TrackedToken{Symbol: "BBB", IsActive: true, Priority: 2, FuturesListed: boolPtr(true), FuturesCheckedAt: at},
		domain.TrackedToken{Symbol: "AAA", IsActive: false, FuturesListed: boolPtr(false), FuturesCheckedAt: at},
	)
	listings := newFakeListings()
	listings.infos["CCC"] = availableListing("CCCUSDT")

	r := newTestReconciler(universeOf("CCC", "AAA", "BBB"), store, listings, nil)

	first, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	second, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	// With unchanged upstream state, successive passes produce the same
	// tokens in the same order; only the pass id differs.
	assert.NotEqual(t, first.PassID, second.PassID)
	assert.Equal(t, first.Tokens, second.Tokens)
}

func TestReconcileIncludesTrackedMissingFromUniverse(t *testing.T) {
	store := newFakeTokenStore(domain.TrackedToken{
		Symbol: "GONE", Name: "Gone Token", IsActive: true, Priority: 3,
	})
	listings := newFakeListings()
	listings.infos["HERE"] = availableListing("HEREUSDT")

	r := newTestReconciler(universeOf("HERE"), store, listings, nil)
	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Tokens, 2)
	// Tracked tokens sort first even when absent from the universe.
	assert.Equal(t, "GONE", result.Tokens[0].Symbol)
	assert.True(t, result.Tokens[0].IsTracked)
	assert.Equal(t, "HERE", result.Tokens[1].Symbol)
	assert.False(t, result.Tokens[1].IsTracked)
}

func TestReconcileOrdering(t *testing.T) {
	at := timePtr(reconcileNow.Add(-time.Hour))
	store := newFakeTokenStore(
		domain.TrackedToken{Symbol: "BBB", IsActive: true, Priority: 1, FuturesListed: boolPtr(true), FuturesCheckedAt: at},
		domain.TrackedToken{Symbol: "AAA", IsActive: true, Priority: 1, FuturesListed: boolPtr(true), FuturesCheckedAt: at},
		domain.TrackedToken{Symbol: "CCC", IsActive: true, Priority: 9, FuturesListed: boolPtr(true), FuturesCheckedAt: at},
		domain.TrackedToken{Symbol: "YYY", IsActive: false, FuturesListed: boolPtr(false), FuturesCheckedAt: at},
		domain.TrackedToken{Symbol: "XXX", IsActive: false, FuturesListed: boolPtr(false), FuturesCheckedAt: at},
	)

	r := newTestReconciler(universeOf("YYY", "BBB", "XXX", "AAA", "CCC"), store, newFakeListings(), nil)
	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	var order []string
	for _, tok := range result.Tokens {
		order = append(order, tok.Symbol)
	}
	// Tracked first (priority desc, symbol asc), then untracked by symbol.
	assert.Equal(t, []string{"CCC", "AAA", "BBB", "XXX", "YYY"}, order)
}

func TestReconcileUniverseFailureAborts(t *testing.T) {
	store := newFakeTokenStore()
	listings := newFakeListings()

	r := newTestReconciler(&fakeUniverse{err: errors.New("HTTP 503")}, store, listings, nil)
	result, err := r.Reconcile(context.Background())

	require.Error(t, err)
	assert.Nil(t, result.Tokens)
	assert.NotEmpty(t, result.PassID)
	assert.Zero(t, listings.callCount())
}

func TestReconcilePassIDsAreUnique(t *testing.T) {
	store := newFakeTokenStore()
	r := newTestReconciler(universeOf(), store, newFakeListings(), nil)

	a, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	b, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, a.PassID, b.PassID)
}
