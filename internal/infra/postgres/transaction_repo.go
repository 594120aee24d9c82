package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pkozlov/basistrack/internal/ledger"
	"github.com/pkozlov/basistrack/pkg/money"
)

// TransactionRepository reads and writes the immutable transaction ledger.
// It implements ledger.TransactionReader and ledger.CrossEntryResolver.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `id, owner_kind, owner_id, type, date, security_id, shares, amount, fees, taxes, currency, cross_entry_id`

// Save inserts a transaction. Rows are append-only; updates are not offered.
func (r *TransactionRepository) Save(ctx context.Context, txn *ledger.Transaction) error {
	if err := txn.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		txn.ID,
		string(txn.OwnerKind),
		txn.OwnerID,
		string(txn.Type),
		txn.Date,
		txn.SecurityID,
		int64(txn.Shares),
		int64(txn.Amount),
		int64(txn.Fees),
		int64(txn.Taxes),
		txn.Currency,
		txn.CrossEntryID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// ListBySecurity retrieves every transaction touching a security, date-ascending.
func (r *TransactionRepository) ListBySecurity(ctx context.Context, securityID uuid.UUID) ([]*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE security_id = $1
		ORDER BY date ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, securityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions by security: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListByPortfolio retrieves the portfolio's transactions plus account-level
// deposits and removals. The account rows ride along because the performance
// calculators derive external cash flows from them.
func (r *TransactionRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE owner_id = $1
		   OR (owner_kind = 'account' AND type IN ('DEPOSIT', 'REMOVAL'))
		ORDER BY date ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions by portfolio: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListSecurityIDs retrieves the distinct securities referenced by any transaction.
func (r *TransactionRepository) ListSecurityIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT security_id
		FROM transactions
		WHERE security_id IS NOT NULL
		ORDER BY security_id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query security ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan security id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating security ids: %w", err)
	}

	return ids, nil
}

// SourcePortfolio resolves the portfolio that sent a transfer by finding the
// TRANSFER_OUT side of the cross-entry. A missing counterpart is a valid
// outcome (external transfers), reported as resolved=false without error.
func (r *TransactionRepository) SourcePortfolio(ctx context.Context, crossEntryID uuid.UUID) (uuid.UUID, bool, error) {
	query := `
		SELECT owner_id
		FROM transactions
		WHERE cross_entry_id = $1
		  AND type = 'TRANSFER_OUT'
		  AND owner_kind = 'portfolio'
		LIMIT 1
	`

	var sourceID uuid.UUID
	err := r.pool.QueryRow(ctx, query, crossEntryID).Scan(&sourceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("failed to resolve cross entry: %w", err)
	}

	return sourceID, true, nil
}

// scanTransactions scans rows into transactions
func scanTransactions(rows pgx.Rows) ([]*ledger.Transaction, error) {
	var txns []*ledger.Transaction
	for rows.Next() {
		var txn ledger.Transaction
		var ownerKind, txnType string
		var shares, amount, fees, taxes int64

		err := rows.Scan(
			&txn.ID,
			&ownerKind,
			&txn.OwnerID,
			&txnType,
			&txn.Date,
			&txn.SecurityID,
			&shares,
			&amount,
			&fees,
			&taxes,
			&txn.Currency,
			&txn.CrossEntryID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		txn.OwnerKind = ledger.OwnerKind(ownerKind)
		txn.Type = ledger.TransactionType(txnType)
		txn.Shares = money.Shares(shares)
		txn.Amount = money.Cents(amount)
		txn.Fees = money.Cents(fees)
		txn.Taxes = money.Cents(taxes)

		txns = append(txns, &txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}
