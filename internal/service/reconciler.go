package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// UniverseSource fetches the full alpha token universe.
// *binance.Client satisfies it.
type UniverseSource interface {
	FetchUniverse(ctx context.Context) ([]domain.UniverseToken, error)
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	PassID    string               `json:"pass_id"`
	Tokens    []domain.MergedToken `json:"tokens"`
	Tracked   int                  `json:"tracked"`
	Reused    int                  `json:"reused"`
	Verified  int                  `json:"verified"`
	Failed    int                  `json:"failed"`
	StartedAt time.Time            `json:"started_at"`
	Duration  time.Duration        `json:"duration"`
}

// Reconciler merges the live alpha universe with the locally tracked set and
// refreshes stale futures-listing verdicts.
type Reconciler struct {
	universe   UniverseSource
	store      domain.TokenStore
	listings   ListingSource
	fresh      Freshness
	onListed   ListedFunc
	batchSize  int
	batchPause time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// ReconcilerConfig holds the tunables of a Reconciler.
type ReconcilerConfig struct {
	BatchSize  int
	BatchPause time.Duration
}

// NewReconciler creates a Reconciler. onListed may be nil.
func NewReconciler(
	universe UniverseSource,
	store domain.TokenStore,
	listings ListingSource,
	fresh Freshness,
	cfg ReconcilerConfig,
	onListed ListedFunc,
	logger *slog.Logger,
) *Reconciler {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 5
	}
	return &Reconciler{
		universe:   universe,
		store:      store,
		listings:   listings,
		fresh:      fresh,
		onListed:   onListed,
		batchSize:  cfg.BatchSize,
		batchPause: cfg.BatchPause,
		logger:     logger.With(slog.String("component", "reconciler")),
		now:        time.Now,
	}
}

// stalePick is one universe token whose verdict must be refreshed, together
// with its prior cached state.
type stalePick struct {
	index int
	prior *domain.TrackedToken
}

// Reconcile runs one full reconciliation pass and returns the merged view in
// deterministic order: tracked tokens first (priority descending, symbol
// ascending), then untracked tokens by symbol.
//
// A universe fetch failure aborts the pass; there is no stale fallback. A
// failed verification of an individual token does not: that token surfaces
// with an unknown verdict and the pass continues.
func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileResult, error) {
	result := ReconcileResult{
		PassID:    uuid.New().String(),
		StartedAt: r.now().UTC(),
	}
	log := r.logger.With(slog.String("pass_id", result.PassID))

	universe, err := r.universe.FetchUniverse(ctx)
	if err != nil {
		return result, fmt.Errorf("reconcile: fetch universe: %w", err)
	}

	rows, err := r.store.ListAll(ctx)
	if err != nil {
		return result, fmt.Errorf("reconcile: list cached tokens: %w", err)
	}

	index := make(map[string]domain.TrackedToken, len(rows))
	for _, row := range rows {
		index[domain.NormalizeSymbol(row.Symbol)] = row
	}

	merged := make([]domain.MergedToken, 0, len(universe))
	var stale []stalePick
	seen := make(map[string]bool, len(universe))

	for _, u := range universe {
		norm := domain.NormalizeSymbol(u.Symbol)
		seen[norm] = true

		m := domain.MergedToken{UniverseToken: u}
		row, ok := index[norm]

		switch {
		case ok && row.IsActive:
			// Tracked tokens keep their cached verdict verbatim.
			m.IsTracked = true
			m.Priority = row.Priority
			m.Notes = row.Notes
			m.FuturesListed = row.FuturesListed
			m.LastVerifiedAt = row.FuturesCheckedAt
			result.Tracked++
		case ok && row.FuturesListed != nil && r.fresh.Fresh(row.FuturesCheckedAt, r.now()):
			m.FuturesListed = row.FuturesListed
			m.LastVerifiedAt = row.FuturesCheckedAt
			result.Reused++
		default:
			pick := stalePick{index: len(merged)}
			if ok {
				prior := row
				pick.prior = &prior
			}
			stale = append(stale, pick)
		}

		merged = append(merged, m)
	}

	// Tracked tokens that dropped out of the universe still belong in the
	// merged view; curators asked for them explicitly.
	for _, row := range rows {
		if !row.IsActive || seen[domain.NormalizeSymbol(row.Symbol)] {
			continue
		}
		merged = append(merged, domain.MergedToken{
			UniverseToken:  domain.UniverseToken{Symbol: row.Symbol, Name: row.Name},
			IsTracked:      true,
			Priority:       row.Priority,
			Notes:          row.Notes,
			FuturesListed:  row.FuturesListed,
			LastVerifiedAt: row.FuturesCheckedAt,
		})
		result.Tracked++
	}

	verified, failed := r.refreshStale(ctx, log, merged, stale)
	result.Verified = verified
	result.Failed = failed

	sortMerged(merged)
	result.Tokens = merged
	result.Duration = r.now().UTC().Sub(result.StartedAt)

	log.Info("reconciliation pass complete",
		slog.Int("universe", len(universe)),
		slog.Int("tracked", result.Tracked),
		slog.Int("reused", result.Reused),
		slog.Int("verified", result.Verified),
		slog.Int("failed", result.Failed),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

// refreshStale re-checks stale universe tokens in bounded concurrent batches
// with a pause between batches. Each token is isolated: a failed check leaves
// its verdict unknown and is only logged.
func (r *Reconciler) refreshStale(ctx context.Context, log *slog.Logger, merged []domain.MergedToken, stale []stalePick) (verified, failed int) {
	for start := 0; start < len(stale); start += r.batchSize {
		end := start + r.batchSize
		if end > len(stale) {
			end = len(stale)
		}

		if start > 0 && r.batchPause > 0 {
			select {
			case <-ctx.Done():
				failed += len(stale) - start
				return verified, failed
			case <-time.After(r.batchPause):
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		outcomes := make([]error, end-start)

		for i, pick := range stale[start:end] {
			i, pick := i, pick
			g.Go(func() error {
				outcomes[i] = r.refreshOne(gctx, &merged[pick.index], pick.prior)
				return nil
			})
		}
		_ = g.Wait()

		for i, pick := range stale[start:end] {
			if outcomes[i] != nil {
				failed++
				log.Warn("verification failed, verdict left unknown",
					slog.String("symbol", merged[pick.index].Symbol),
					slog.String("error", outcomes[i].Error()),
				)
			} else {
				verified++
			}
		}
	}
	return verified, failed
}

// refreshOne checks one token's listing, persists the definite verdict, and
// updates the merged entry in place. On error the entry keeps a nil verdict
// and nothing is persisted.
//
// When both the universe entry and the cached catalog row carry a name, an
// available contract only counts as listed if the names agree. A symbol that
// resolves to a live contract under a different name is a collision, not a
// listing.
func (r *Reconciler) refreshOne(ctx context.Context, m *domain.MergedToken, prior *domain.TrackedToken) error {
	norm := domain.NormalizeSymbol(m.Symbol)

	listing, err := r.listings.CheckListing(ctx, norm)
	if err != nil {
		return err
	}

	verdict := listing.Available
	if verdict && prior != nil && prior.Name != "" && m.Name != "" && !strings.EqualFold(prior.Name, m.Name) {
		verdict = false
		r.logger.Warn("symbol collision: contract available but name mismatches catalog",
			slog.String("symbol", norm),
			slog.String("catalog_name", prior.Name),
			slog.String("universe_name", m.Name),
			slog.String("contract", listing.ContractSymbol),
		)
	}

	checkedAt := r.now().UTC()
	if err := r.store.UpsertVerification(ctx, norm, verdict, checkedAt); err != nil {
		return err
	}

	m.FuturesListed = &verdict
	m.LastVerifiedAt = &checkedAt

	wasListed := prior != nil && prior.FuturesListed != nil && *prior.FuturesListed
	if verdict && !wasListed && r.onListed != nil {
		r.onListed(ctx, norm, listing)
	}
	return nil
}

// sortMerged orders the merged view deterministically: tracked tokens first
// by priority descending then symbol ascending, untracked tokens after by
// symbol ascending.
func sortMerged(merged []domain.MergedToken) {
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.IsTracked != b.IsTracked {
			return a.IsTracked
		}
		if a.IsTracked {
			if a.Priority != b.Priority {
				return a.Priority > b.Priority
			}
		}
		return domain.NormalizeSymbol(a.Symbol) < domain.NormalizeSymbol(b.Symbol)
	})
}
