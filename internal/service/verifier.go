package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// ListedFunc is invoked when a verification flips a symbol's cached verdict
// from unknown or false to listed.
type ListedFunc func(ctx context.Context, symbol string, listing domain.ListingInfo)

// Verifier implements two-factor verification of futures-listing signals: a
// listing only counts when the exchange's answer matches the locally curated
// catalog entry for the symbol.
type Verifier struct {
	store    domain.TokenStore
	listings ListingSource
	onListed ListedFunc
	logger   *slog.Logger
	now      func() time.Time
}

// NewVerifier creates a Verifier. onListed may be nil.
func NewVerifier(store domain.TokenStore, listings ListingSource, onListed ListedFunc, logger *slog.Logger) *Verifier {
	return &Verifier{
		store:    store,
		listings: listings,
		onListed: onListed,
		logger:   logger.With(slog.String("component", "verifier")),
		now:      time.Now,
	}
}

// Verify checks whether the futures listing for rawSymbol is trustworthy.
// expectedName may be empty; when both it and the catalog name are present
// the check runs in strict mode and the names must match too.
//
// Definite verdicts (true and false) are persisted. An inconclusive check
// (upstream failure) is returned wrapped in domain.ErrInconclusive and is
// never persisted; the cached verdict keeps its previous value.
func (v *Verifier) Verify(ctx context.Context, rawSymbol, expectedName string) (domain.VerificationOutcome, error) {
	norm := domain.NormalizeSymbol(rawSymbol)
	outcome := domain.VerificationOutcome{
		Symbol:    norm,
		Mode:      domain.VerifyRelaxed,
		CheckedAt: v.now().UTC(),
	}

	catalog, err := v.lookupCatalog(ctx, rawSymbol, norm)
	if errors.Is(err, domain.ErrNotFound) {
		// Without a catalog entry there is nothing to verify against, so
		// the upstream API is not consulted at all.
		outcome.Reason = domain.ReasonNoCatalogEntry
		return outcome, nil
	}
	if err != nil {
		return outcome, fmt.Errorf("verify %s: catalog lookup: %w", norm, err)
	}

	listing, err := v.listings.CheckListing(ctx, norm)
	if err != nil {
		outcome.Reason = domain.ReasonUpstreamError
		return outcome, fmt.Errorf("verify %s: %w: %v", norm, domain.ErrInconclusive, err)
	}
	outcome.Listing = listing

	outcome.SymbolMatch = catalog.Symbol == rawSymbol || catalog.Symbol == norm

	if expectedName != "" && catalog.Name != "" {
		outcome.Mode = domain.VerifyStrict
		match := strings.EqualFold(catalog.Name, expectedName)
		outcome.NameMatch = &match
	}

	outcome.Verdict = outcome.SymbolMatch && listing.Available
	if outcome.Mode == domain.VerifyStrict {
		outcome.Verdict = outcome.Verdict && *outcome.NameMatch
	}

	if !outcome.Verdict {
		switch {
		case !listing.Available:
			outcome.Reason = domain.ReasonNotListed
		case !outcome.SymbolMatch:
			outcome.Reason = domain.ReasonSymbolMismatch
		default:
			outcome.Reason = domain.ReasonNameMismatch
		}
	}

	// A symbol that matches an available contract while the name does not is
	// the classic impostor-listing pattern; make it loud.
	if outcome.SymbolMatch && outcome.NameMatch != nil && !*outcome.NameMatch && listing.Available {
		v.logger.Warn("symbol collision: contract available but name mismatches catalog",
			slog.String("symbol", norm),
			slog.String("catalog_name", catalog.Name),
			slog.String("reported_name", expectedName),
			slog.String("contract", listing.ContractSymbol),
		)
	}

	if err := v.store.UpsertVerification(ctx, catalog.Symbol, outcome.Verdict, outcome.CheckedAt); err != nil {
		return outcome, fmt.Errorf("verify %s: persist verdict: %w", norm, err)
	}

	wasListed := catalog.FuturesListed != nil && *catalog.FuturesListed
	if outcome.Verdict && !wasListed && v.onListed != nil {
		v.onListed(ctx, catalog.Symbol, listing)
	}

	return outcome, nil
}

// lookupCatalog resolves the catalog row for a symbol, trying the normalized
// form first and the raw input second.
func (v *Verifier) lookupCatalog(ctx context.Context, rawSymbol, norm string) (domain.TrackedToken, error) {
	token, err := v.store.GetBySymbol(ctx, norm)
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return token, err
	}
	if rawSymbol == norm {
		return domain.TrackedToken{}, err
	}
	return v.store.GetBySymbol(ctx, rawSymbol)
}
