package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RateRepository stores historical currency exchange rates. Rates carry 8
// implied decimals: quote units per one base unit.
type RateRepository struct {
	pool *pgxpool.Pool
}

// NewRateRepository creates a new PostgreSQL rate repository
func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}

// Record inserts or updates one exchange rate observation.
func (r *RateRepository) Record(ctx context.Context, base, quote string, date time.Time, rate int64) error {
	query := `
		INSERT INTO fx_rates (base, quote, date, rate)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (base, quote, date) DO UPDATE SET rate = EXCLUDED.rate
	`

	if _, err := r.pool.Exec(ctx, query, base, quote, date, rate); err != nil {
		return fmt.Errorf("failed to record rate: %w", err)
	}

	return nil
}

// RateAtOrBefore retrieves the most recent rate observation not after asOf.
// A missing rate is reported as found=false without error; the converter
// decides how to degrade.
func (r *RateRepository) RateAtOrBefore(ctx context.Context, base, quote string, asOf time.Time) (int64, bool, error) {
	query := `
		SELECT rate
		FROM fx_rates
		WHERE base = $1 AND quote = $2 AND date <= $3
		ORDER BY date DESC
		LIMIT 1
	`

	var rate int64
	err := r.pool.QueryRow(ctx, query, base, quote, asOf).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to query rate: %w", err)
	}

	return rate, true, nil
}
