package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pkozlov/basistrack/internal/performance"
)

// PriceRepository stores per-security price observations. It implements
// performance.PriceSource.
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new PostgreSQL price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// Record inserts or updates one price observation. Prices carry 8 implied
// decimals.
func (r *PriceRepository) Record(ctx context.Context, securityID uuid.UUID, date time.Time, price int64) error {
	query := `
		INSERT INTO prices (security_id, date, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (security_id, date) DO UPDATE SET price = EXCLUDED.price
	`

	if _, err := r.pool.Exec(ctx, query, securityID, date, price); err != nil {
		return fmt.Errorf("failed to record price: %w", err)
	}

	return nil
}

// History retrieves all observations at or before until, ascending.
func (r *PriceRepository) History(ctx context.Context, securityID uuid.UUID, until time.Time) ([]performance.PricePoint, error) {
	query := `
		SELECT date, price
		FROM prices
		WHERE security_id = $1 AND date <= $2
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, securityID, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var points []performance.PricePoint
	for rows.Next() {
		var p performance.PricePoint
		if err := rows.Scan(&p.Date, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return points, nil
}
