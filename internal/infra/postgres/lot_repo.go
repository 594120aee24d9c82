package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pkozlov/basistrack/internal/fifo"
	"github.com/pkozlov/basistrack/pkg/money"
)

// LotRepository persists derived FIFO state. It implements fifo.LotStore for
// the rebuilder and the costbasis read ports for queries.
type LotRepository struct {
	pool *pgxpool.Pool
}

// NewLotRepository creates a new PostgreSQL lot repository
func NewLotRepository(pool *pgxpool.Pool) *LotRepository {
	return &LotRepository{pool: pool}
}

// ReplaceForSecurity atomically swaps the security's derived state for a
// freshly computed one. Consumptions go first on delete (they reference
// lots) and last on insert.
func (r *LotRepository) ReplaceForSecurity(ctx context.Context, securityID uuid.UUID, lots []*fifo.Lot, consumptions []*fifo.Consumption) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM consumptions WHERE lot_id IN (SELECT id FROM lots WHERE security_id = $1)`,
		securityID,
	); err != nil {
		return fmt.Errorf("failed to delete consumptions: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM lots WHERE security_id = $1`, securityID); err != nil {
		return fmt.Errorf("failed to delete lots: %w", err)
	}

	lotRows := make([][]any, 0, len(lots))
	for _, lot := range lots {
		lotRows = append(lotRows, []any{
			lot.ID,
			lot.SecurityID,
			lot.PortfolioID,
			lot.TransactionID,
			lot.PurchaseDate,
			int64(lot.OriginalShares),
			int64(lot.RemainingShares),
			int64(lot.GrossAmount),
			int64(lot.NetAmount),
			lot.Currency,
		})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"lots"},
		[]string{"id", "security_id", "portfolio_id", "transaction_id", "purchase_date",
			"original_shares", "remaining_shares", "gross_amount", "net_amount", "currency"},
		pgx.CopyFromRows(lotRows),
	); err != nil {
		return fmt.Errorf("failed to insert lots: %w", err)
	}

	consumptionRows := make([][]any, 0, len(consumptions))
	for _, c := range consumptions {
		consumptionRows = append(consumptionRows, []any{
			c.ID,
			c.LotID,
			c.TransactionID,
			int64(c.SharesConsumed),
			int64(c.GrossAmount),
			int64(c.NetAmount),
		})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"consumptions"},
		[]string{"id", "lot_id", "transaction_id", "shares_consumed", "gross_amount", "net_amount"},
		pgx.CopyFromRows(consumptionRows),
	); err != nil {
		return fmt.Errorf("failed to insert consumptions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit lot replacement: %w", err)
	}

	return nil
}

// ListLots retrieves the security's lots in creation (FIFO) order.
func (r *LotRepository) ListLots(ctx context.Context, securityID uuid.UUID) ([]*fifo.Lot, error) {
	query := `
		SELECT id, security_id, portfolio_id, transaction_id, purchase_date,
		       original_shares, remaining_shares, gross_amount, net_amount, currency
		FROM lots
		WHERE security_id = $1
		ORDER BY purchase_date ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, securityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	var lots []*fifo.Lot
	for rows.Next() {
		var lot fifo.Lot
		var original, remaining, gross, net int64

		err := rows.Scan(
			&lot.ID,
			&lot.SecurityID,
			&lot.PortfolioID,
			&lot.TransactionID,
			&lot.PurchaseDate,
			&original,
			&remaining,
			&gross,
			&net,
			&lot.Currency,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}

		lot.OriginalShares = money.Shares(original)
		lot.RemainingShares = money.Shares(remaining)
		lot.GrossAmount = money.Cents(gross)
		lot.NetAmount = money.Cents(net)

		lots = append(lots, &lot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lots: %w", err)
	}

	return lots, nil
}

// ListConsumptions retrieves all consumptions of the security's lots.
func (r *LotRepository) ListConsumptions(ctx context.Context, securityID uuid.UUID) ([]*fifo.Consumption, error) {
	query := `
		SELECT c.id, c.lot_id, c.transaction_id, c.shares_consumed, c.gross_amount, c.net_amount
		FROM consumptions c
		JOIN lots l ON l.id = c.lot_id
		WHERE l.security_id = $1
		ORDER BY c.id ASC
	`

	rows, err := r.pool.Query(ctx, query, securityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query consumptions: %w", err)
	}
	defer rows.Close()

	var consumptions []*fifo.Consumption
	for rows.Next() {
		var c fifo.Consumption
		var shares, gross, net int64

		err := rows.Scan(&c.ID, &c.LotID, &c.TransactionID, &shares, &gross, &net)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consumption: %w", err)
		}

		c.SharesConsumed = money.Shares(shares)
		c.GrossAmount = money.Cents(gross)
		c.NetAmount = money.Cents(net)

		consumptions = append(consumptions, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating consumptions: %w", err)
	}

	return consumptions, nil
}
