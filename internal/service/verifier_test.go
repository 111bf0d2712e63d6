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

func newTestVerifier(store domain.TokenStore, listings ListingSource, onListed ListedFunc) *Verifier {
	v := NewVerifier(store, listings, onListed, slog.New(slog.DiscardHandler))
	v.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return v
}

func TestVerifyRelaxedListed(t *testing.T) {
	store := newFakeTokenStore(domain.TrackedToken{Symbol: "ZORA", Name: "Zora", IsActive: true})
	listings := newFakeListings()
	listings.infos["ZORA"] = availableListing("ZORAUSDT")

	var flipped []string
	v := newTestVerifier(store, listings, func(ctx context.Context, symbol string, listing domain.ListingInfo) {
		flipped = append(flipped, symbol)
	})

	out, err := v.Verify(context.Background(), "$zora", "")
	require.NoError(t, err)

	assert.Equal(t, "ZORA", out.Symbol)
	assert.True(t, out.Verdict)
	assert.Equal(t, domain.VerifyRelaxed, out.Mode)
	assert.True(t, out.SymbolMatch)
	assert.Nil(t, out.NameMatch)

	calls := store.upsertCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "ZORA", calls[0].symbol)
	assert.True(t, calls[0].listed)

	assert.Equal(t, []string{"ZORA"}, flipped)
}

func TestVerifyStrictNameMatch(t *testing.T) {
	store := newFakeTokenStore(domain.TrackedToken{Symbol: "ZORA", Name: "Zora", IsActive: true})
	listings := newFakeListings()
	listings.infos["ZORA"] = availableListing("ZORAUSDT")

	v := newTestVerifier(store, listings, nil)

	out, err := v.Verify(context.Background(), "ZORA", "zora")
	require.NoError(t, err)

	assert.Equal(t, domain.VerifyStrict, out.Mode)
	require.NotNil(t, out.NameMatch)
	assert.True(t, *out.NameMatch)
	assert.True(t, out.Verdict)
}

func TestVerifyStrictNameMismatch(t *testing.T) {
	store := newFakeTokenStore(domain.TrackedToken{Symbol: "ZORA", Name: "Zora", IsActive: true})
	listings := newFakeListings()
	listings.infos["ZORA"] = availableListing("ZORAUSDT")

	var flipped []string
	v := newTestVerifier(store, listings, func(ctx context.Context, symbol string, listing domain.ListingInfo) {
		flipped = append(flipped, symbol)
	})

	out, err := v.Verify(context.Background(), "ZORA", "Impostor Coin")
	require.NoError(t, err)

	assert.False(t, out.Verdict)
	assert.Equal(t, domain.ReasonNameMismatch, out.Reason)
	require.NotNil(t, out.NameMatch)
	assert.False(t, *out.NameMatch)

	// The false verdict is persisted too.
	calls := store.upsertCalls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].listed)

	assert.Empty(t, flipped)
}

func TestVerifyNoCatalogEntry(t *testing.T) {
	store := newFakeTokenStore()
	listings := newFakeListings()

	v := newTestVerifier(store, listings, nil)

	out, err := v.Verify(context.Background(), "GHOST", "")
	require.NoError(t, err)

	assert.False(t, out.Verdict)
	assert.Equal(t, domain.ReasonNoCatalogEntry, out.Reason)

	// Without a catalog entry the upstream API is never consulted and
	// nothing is persisted.
	assert.Zero(t, listings.callCount())
	assert.Empty(t, store.upsertCalls())
}

func TestVerifyNotListed(t *testing.T) {
	store := newFakeTokenStore(domain.TrackedToken{Symbol: "ZORA", Name: "Zora", IsActive: true})
	listings := newFakeListings() // defaults to NOT_FOUND

	v := newTestVerifier(store, listings, nil)

	out, err := v.Verify(context.Background(), "ZORA", "")
	require.NoError(t, err)

	assert.False(t, out.Verdict)
	assert.Equal(t, domain.ReasonNotListed, out.Reason)

	calls := store.upsertCalls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].listed)
}

func TestVerifyUpstreamErrorInconclusive(t *testing.T) {
	store := newFakeTokenStore(domain.TrackedToken{Symbol: "ZORA", Name: "Zora", IsActive: true})
	listings := newFakeListings()
	listings.errs["ZORA"] = errors.New("connection reset")

	v := newTestVerifier(store, listings, nil)

	out, err := v.Verify(context.Background(), "ZORA", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInconclusive))
	assert.Equal(t, domain.ReasonUpstreamError, out.Reason)

	// An inconclusive check never overwrites the cached verdict.
	assert.Empty(t, store.upsertCalls())
}

func TestVerifyListedCallbackOnlyOnFlip(t *testing.T) {
	store := newFakeTokenStore(domain.TrackedToken{
		Symbol: "ZORA", Name: "Zora", IsActive: true,
		FuturesListed:    boolPtr(true),
		FuturesCheckedAt: timePtr(time.Now().UTC()),
	})
	listings := newFakeListings()
	listings.infos["ZORA"] = availableListing("ZORAUSDT")

	var flipped []string
	v := newTestVerifier(store, listings, func(ctx context.Context, symbol string, listing domain.ListingInfo) {
		flipped = append(flipped, symbol)
	})

	_, err := v.Verify(context.Background(), "ZORA", "")
	require.NoError(t, err)

	// Already listed; no flip, no callback.
	assert.Empty(t, flipped)
}
