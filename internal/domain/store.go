package domain

import (
	"context"
	"time"
)

// TokenStore persists tracked tokens and cached verification verdicts.
type TokenStore interface {
	// ListTracked returns active rows ordered by priority descending, then
	// symbol ascending (the curator-facing ranking).
	ListTracked(ctx context.Context) ([]TrackedToken, error)

	// ListAll returns every row, active or not, so the reconciliation engine
	// can reuse verdicts cached for untracked symbols.
	ListAll(ctx context.Context) ([]TrackedToken, error)

	// GetBySymbol looks a row up by exact match, then case-insensitive match,
	// then substring match, returning the first hit. It returns ErrNotFound
	// when all three strategies miss.
	GetBySymbol(ctx context.Context, symbol string) (TrackedToken, error)

	// UpsertVerification records a confirmed futures-listing verdict. It is
	// idempotent and creates an inactive row when the symbol is unknown, so
	// verdicts for untracked symbols are cached for future passes.
	UpsertVerification(ctx context.Context, symbol string, listed bool, verifiedAt time.Time) error

	// Create adds a curator-tracked token. It returns ErrAlreadyExists when
	// the symbol is already active, and re-activates a soft-deleted row
	// instead of inserting a duplicate.
	Create(ctx context.Context, token TrackedToken) (int64, error)

	// Deactivate soft-deletes a tracked token. It returns ErrNotFound when no
	// active row matches.
	Deactivate(ctx context.Context, symbol string) (int64, error)

	SetPriority(ctx context.Context, symbol string, priority int) error
	SetNotes(ctx context.Context, symbol string, notes string) error

	// Search matches symbol or name against a case-insensitive substring.
	Search(ctx context.Context, query string, limit int) ([]TrackedToken, error)
}

// PriceHistoryStore persists append-only price samples for tracked tokens.
type PriceHistoryStore interface {
	Insert(ctx context.Context, p PricePoint) error
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]PricePoint, error)
	// PruneBefore removes samples older than the cutoff and returns the
	// number of rows deleted.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
