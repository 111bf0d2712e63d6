package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// PriceHistoryStore implements domain.PriceHistoryStore using PostgreSQL.
// The table is append-only; retention is handled by PruneBefore.
type PriceHistoryStore struct {
	pool *pgxpool.Pool
}

// NewPriceHistoryStore creates a new PriceHistoryStore backed by the given
// connection pool.
func NewPriceHistoryStore(pool *pgxpool.Pool) *PriceHistoryStore {
	return &PriceHistoryStore{pool: pool}
}

// Compile-time interface check.
var _ domain.PriceHistoryStore = (*PriceHistoryStore)(nil)

// Insert appends one price sample.
func (s *PriceHistoryStore) Insert(ctx context.Context, p domain.PricePoint) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO price_history (symbol, price_usdt, volume_24h, recorded_at)
		 VALUES ($1, $2, $3, $4)`,
		p.Symbol, p.PriceUSDT, p.Volume24h, p.RecordedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert price point %s: %w", p.Symbol, err)
	}
	return nil
}

// ListBySymbol returns the most recent samples for a symbol, newest first,
// up to limit rows.
func (s *PriceHistoryStore) ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.PricePoint, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT symbol, price_usdt, volume_24h, recorded_at
		 FROM price_history
		 WHERE symbol = $1
		 ORDER BY recorded_at DESC
		 LIMIT $2`,
		symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list price history %s: %w", symbol, err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Symbol, &p.PriceUSDT, &p.Volume24h, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan price point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate price history: %w", err)
	}
	return points, nil
}

// PruneBefore deletes samples recorded before the cutoff and returns the
// number of rows removed.
func (s *PriceHistoryStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM price_history WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: prune price history: %w", err)
	}
	return tag.RowsAffected(), nil
}
