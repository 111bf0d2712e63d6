package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// TokenStore implements domain.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *pgxpool.Pool
}

// NewTokenStore creates a new TokenStore backed by the given connection pool.
func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ domain.TokenStore = (*TokenStore)(nil)

const tokenCols = `id, symbol, name, priority, notes, is_active,
	futures_listed, futures_checked_at, chain_id, contract_address,
	created_at, updated_at`

// scanToken scans a single row into a domain.TrackedToken.
func scanToken(row pgx.Row) (domain.TrackedToken, error) {
	var t domain.TrackedToken
	err := row.Scan(
		&t.ID, &t.Symbol, &t.Name, &t.Priority, &t.Notes, &t.IsActive,
		&t.FuturesListed, &t.FuturesCheckedAt, &t.ChainID, &t.ContractAddress,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.TrackedToken{}, err
	}
	return t, nil
}

// collectTokens drains a query result into a slice of tokens.
func collectTokens(rows pgx.Rows) ([]domain.TrackedToken, error) {
	defer rows.Close()

	var tokens []domain.TrackedToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// ListTracked returns all actively tracked tokens ordered by priority
// descending, then symbol ascending.
func (s *TokenStore) ListTracked(ctx context.Context) ([]domain.TrackedToken, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tokenCols+` FROM alpha_tokens
		 WHERE is_active = TRUE
		 ORDER BY priority DESC, symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tracked tokens: %w", err)
	}

	tokens, err := collectTokens(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan tracked tokens: %w", err)
	}
	return tokens, nil
}

// ListAll returns every row, active and inactive. Inactive rows carry cached
// futures-listing verdicts for untracked symbols.
func (s *TokenStore) ListAll(ctx context.Context) ([]domain.TrackedToken, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tokenCols+` FROM alpha_tokens ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list all tokens: %w", err)
	}

	tokens, err := collectTokens(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan all tokens: %w", err)
	}
	return tokens, nil
}

// GetBySymbol looks a token up by symbol using three strategies in order:
// exact match, case-insensitive match, substring match. The first hit wins.
func (s *TokenStore) GetBySymbol(ctx context.Context, symbol string) (domain.TrackedToken, error) {
	queries := []string{
		`SELECT ` + tokenCols + ` FROM alpha_tokens WHERE symbol = $1 LIMIT 1`,
		`SELECT ` + tokenCols + ` FROM alpha_tokens WHERE LOWER(symbol) = LOWER($1) LIMIT 1`,
		`SELECT ` + tokenCols + ` FROM alpha_tokens
		 WHERE symbol ILIKE '%' || $1 || '%' ORDER BY symbol ASC LIMIT 1`,
	}

	for _, q := range queries {
		t, err := scanToken(s.pool.QueryRow(ctx, q, symbol))
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.TrackedToken{}, fmt.Errorf("postgres: get token %s: %w", symbol, err)
		}
	}

	return domain.TrackedToken{}, fmt.Errorf("postgres: get token %s: %w", symbol, domain.ErrNotFound)
}

// UpsertVerification records a futures-listing verdict for a symbol. The row
// is created inactive when absent so verdicts for untracked symbols are
// cached too. Idempotent.
func (s *TokenStore) UpsertVerification(ctx context.Context, symbol string, listed bool, verifiedAt time.Time) error {
	const query = `
		INSERT INTO alpha_tokens (symbol, is_active, futures_listed, futures_checked_at)
		VALUES ($1, FALSE, $2, $3)
		ON CONFLICT (symbol) DO UPDATE SET
			futures_listed     = EXCLUDED.futures_listed,
			futures_checked_at = EXCLUDED.futures_checked_at,
			updated_at         = NOW()`

	_, err := s.pool.Exec(ctx, query, symbol, listed, verifiedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert verification %s: %w", symbol, err)
	}
	return nil
}

// Create adds a token to the tracked set. A previously deactivated row is
// re-activated in place; an already active symbol yields
// domain.ErrAlreadyExists.
func (s *TokenStore) Create(ctx context.Context, t domain.TrackedToken) (int64, error) {
	const query = `
		INSERT INTO alpha_tokens (symbol, name, priority, notes, is_active, chain_id, contract_address)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)
		ON CONFLICT (symbol) DO UPDATE SET
			name             = EXCLUDED.name,
			priority         = EXCLUDED.priority,
			notes            = EXCLUDED.notes,
			is_active        = TRUE,
			chain_id         = EXCLUDED.chain_id,
			contract_address = EXCLUDED.contract_address,
			updated_at       = NOW()
		WHERE alpha_tokens.is_active = FALSE
		RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		t.Symbol, t.Name, t.Priority, t.Notes, t.ChainID, t.ContractAddress,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// The conflict target exists and is already active.
		return 0, fmt.Errorf("postgres: create token %s: %w", t.Symbol, domain.ErrAlreadyExists)
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: create token %s: %w", t.Symbol, err)
	}
	return id, nil
}

// Deactivate soft-deletes a tracked token. Cached verification fields are
// kept so the reconciliation engine can still reuse fresh verdicts.
func (s *TokenStore) Deactivate(ctx context.Context, symbol string) (int64, error) {
	const query = `
		UPDATE alpha_tokens SET is_active = FALSE, updated_at = NOW()
		WHERE symbol = $1 AND is_active = TRUE
		RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, query, symbol).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("postgres: deactivate token %s: %w", symbol, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: deactivate token %s: %w", symbol, err)
	}
	return id, nil
}

// SetPriority updates the sort weight of an active tracked token.
func (s *TokenStore) SetPriority(ctx context.Context, symbol string, priority int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE alpha_tokens SET priority = $2, updated_at = NOW()
		 WHERE symbol = $1 AND is_active = TRUE`,
		symbol, priority)
	if err != nil {
		return fmt.Errorf("postgres: set priority %s: %w", symbol, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: set priority %s: %w", symbol, domain.ErrNotFound)
	}
	return nil
}

// SetNotes updates the curator notes of an active tracked token.
func (s *TokenStore) SetNotes(ctx context.Context, symbol, notes string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE alpha_tokens SET notes = $2, updated_at = NOW()
		 WHERE symbol = $1 AND is_active = TRUE`,
		symbol, notes)
	if err != nil {
		return fmt.Errorf("postgres: set notes %s: %w", symbol, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: set notes %s: %w", symbol, domain.ErrNotFound)
	}
	return nil
}

// Search returns active tokens whose symbol or name contains the query,
// case-insensitively, up to limit rows.
func (s *TokenStore) Search(ctx context.Context, query string, limit int) ([]domain.TrackedToken, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+tokenCols+` FROM alpha_tokens
		 WHERE is_active = TRUE
		   AND (symbol ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%')
		 ORDER BY priority DESC, symbol ASC
		 LIMIT $2`,
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: search tokens %q: %w", query, err)
	}

	tokens, err := collectTokens(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan search results: %w", err)
	}
	return tokens, nil
}
