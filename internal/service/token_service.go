package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// TokenService is the curator-facing surface for managing the tracked set.
// All symbol inputs are normalized before they touch the store.
type TokenService struct {
	store   domain.TokenStore
	history domain.PriceHistoryStore
	logger  *slog.Logger
}

// NewTokenService creates a TokenService.
func NewTokenService(store domain.TokenStore, history domain.PriceHistoryStore, logger *slog.Logger) *TokenService {
	return &TokenService{
		store:   store,
		history: history,
		logger:  logger.With(slog.String("component", "token_service")),
	}
}

// Track adds a symbol to the tracked set. A previously untracked symbol whose
// verdict was cached is re-activated with its verification state intact.
func (s *TokenService) Track(ctx context.Context, t domain.TrackedToken) (domain.TrackedToken, error) {
	t.Symbol = domain.NormalizeSymbol(t.Symbol)
	if t.Symbol == "" {
		return domain.TrackedToken{}, fmt.Errorf("track: symbol is required")
	}
	t.Name = strings.TrimSpace(t.Name)
	if t.Priority < 0 {
		t.Priority = 0
	}

	id, err := s.store.Create(ctx, t)
	if err != nil {
		return domain.TrackedToken{}, fmt.Errorf("track %s: %w", t.Symbol, err)
	}

	s.logger.Info("token tracked", slog.String("symbol", t.Symbol), slog.Int64("id", id))
	return s.store.GetBySymbol(ctx, t.Symbol)
}

// Untrack soft-deletes a tracked symbol. The cached verification verdict is
// kept so re-tracking does not force an immediate re-verification.
func (s *TokenService) Untrack(ctx context.Context, symbol string) error {
	norm := domain.NormalizeSymbol(symbol)
	id, err := s.store.Deactivate(ctx, norm)
	if err != nil {
		return fmt.Errorf("untrack %s: %w", norm, err)
	}
	s.logger.Info("token untracked", slog.String("symbol", norm), slog.Int64("id", id))
	return nil
}

// Get resolves a single token by symbol using the store's layered lookup
// (exact, case-insensitive, substring).
func (s *TokenService) Get(ctx context.Context, symbol string) (domain.TrackedToken, error) {
	return s.store.GetBySymbol(ctx, domain.NormalizeSymbol(symbol))
}

// ListTracked returns the active tracked set in display order.
func (s *TokenService) ListTracked(ctx context.Context) ([]domain.TrackedToken, error) {
	return s.store.ListTracked(ctx)
}

// SetPriority updates a tracked token's sort weight.
func (s *TokenService) SetPriority(ctx context.Context, symbol string, priority int) error {
	if priority < 0 {
		priority = 0
	}
	norm := domain.NormalizeSymbol(symbol)
	if err := s.store.SetPriority(ctx, norm, priority); err != nil {
		return fmt.Errorf("set priority %s: %w", norm, err)
	}
	return nil
}

// SetNotes updates a tracked token's curator notes.
func (s *TokenService) SetNotes(ctx context.Context, symbol, notes string) error {
	norm := domain.NormalizeSymbol(symbol)
	if err := s.store.SetNotes(ctx, norm, notes); err != nil {
		return fmt.Errorf("set notes %s: %w", norm, err)
	}
	return nil
}

// Search returns tracked tokens whose symbol or name matches the query.
func (s *TokenService) Search(ctx context.Context, query string, limit int) ([]domain.TrackedToken, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return s.store.Search(ctx, query, limit)
}

// History returns recent price samples for a symbol, newest first.
func (s *TokenService) History(ctx context.Context, symbol string, limit int) ([]domain.PricePoint, error) {
	return s.history.ListBySymbol(ctx, domain.NormalizeSymbol(symbol), limit)
}
