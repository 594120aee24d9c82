// Package ledger defines the immutable transaction records the accounting
// core consumes. Transactions are created once at import time and never
// mutated here; everything downstream (lots, cost basis, valuations) is
// derived state that can be rebuilt from them.
package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pkozlov/basistrack/pkg/money"
)

// OwnerKind identifies which side of the books a transaction lives on.
type OwnerKind string

const (
	OwnerAccount   OwnerKind = "account"
	OwnerPortfolio OwnerKind = "portfolio"
)

// TransactionType is the kind of ledger event.
type TransactionType string

const (
	TypeBuy              TransactionType = "BUY"
	TypeSell             TransactionType = "SELL"
	TypeTransferIn       TransactionType = "TRANSFER_IN"
	TypeTransferOut      TransactionType = "TRANSFER_OUT"
	TypeDeliveryInbound  TransactionType = "DELIVERY_INBOUND"
	TypeDeliveryOutbound TransactionType = "DELIVERY_OUTBOUND"
	TypeDividends        TransactionType = "DIVIDENDS"
	TypeDeposit          TransactionType = "DEPOSIT"
	TypeRemoval          TransactionType = "REMOVAL"
	TypeInterest         TransactionType = "INTEREST"
	TypeFees             TransactionType = "FEES"
	TypeTaxes            TransactionType = "TAXES"
)

// Transaction is a single immutable ledger entry.
type Transaction struct {
	ID           uuid.UUID
	OwnerKind    OwnerKind
	OwnerID      uuid.UUID
	Type         TransactionType
	Date         time.Time
	SecurityID   *uuid.UUID
	Shares       money.Shares // 8 implied decimals, zero for cash-only entries
	Amount       money.Cents
	Currency     string
	Fees         money.Cents
	Taxes        money.Cents
	CrossEntryID *uuid.UUID
}

// Validate checks structural consistency of a transaction record.
func (t *Transaction) Validate() error {
	if t.OwnerKind != OwnerAccount && t.OwnerKind != OwnerPortfolio {
		return ErrInvalidOwnerKind
	}
	if t.Currency == "" {
		return ErrMissingCurrency
	}
	if t.AffectsLots() {
		if t.SecurityID == nil {
			return ErrMissingSecurity
		}
		if t.Shares <= 0 {
			return ErrNonPositiveShares
		}
	}
	return nil
}

// AffectsLots reports whether the transaction type participates in FIFO lot
// accounting.
func (t *Transaction) AffectsLots() bool {
	switch t.Type {
	case TypeBuy, TypeSell, TypeTransferIn, TypeTransferOut,
		TypeDeliveryInbound, TypeDeliveryOutbound:
		return true
	}
	return false
}

// SignedShares returns the share delta the transaction contributes to a
// position: positive for inbound types, negative for outbound, zero
// otherwise. This is the independent share count the valuation builder and
// the rebuild cross-check both use.
func (t *Transaction) SignedShares() money.Shares {
	switch t.Type {
	case TypeBuy, TypeTransferIn, TypeDeliveryInbound:
		return t.Shares
	case TypeSell, TypeTransferOut, TypeDeliveryOutbound:
		return -t.Shares
	}
	return 0
}

// processingPriority orders same-day transactions so that inbound events are
// applied before outbound ones. Without it a same-day buy+sell pair could
// report a spurious oversell depending on insertion order.
func (t *Transaction) processingPriority() int {
	switch t.Type {
	case TypeBuy, TypeDeliveryInbound:
		return 1
	case TypeTransferIn:
		return 2
	case TypeTransferOut:
		return 3
	case TypeSell, TypeDeliveryOutbound:
		return 4
	}
	return 5
}

// SortForProcessing sorts transactions into the canonical processing order:
// (date, type priority, transaction ID). The ID tiebreak keeps the order
// deterministic, which the idempotent-rebuild guarantee depends on.
func SortForProcessing(txns []*Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		a, b := txns[i], txns[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.processingPriority() != b.processingPriority() {
			return a.processingPriority() < b.processingPriority()
		}
		return a.ID.String() < b.ID.String()
	})
}

// SignedShareSum computes the net share count for one (security, portfolio)
// scope directly from the transaction feed. It deliberately ignores lots: the
// lot engine must agree with this figure after every rebuild, and the
// valuation builder uses it as its share count.
func SignedShareSum(txns []*Transaction, securityID, portfolioID uuid.UUID) money.Shares {
	var sum money.Shares
	for _, t := range txns {
		if t.SecurityID == nil || *t.SecurityID != securityID {
			continue
		}
		if t.OwnerKind != OwnerPortfolio || t.OwnerID != portfolioID {
			continue
		}
		sum += t.SignedShares()
	}
	return sum
}

// SharesHeldAt computes the net share count for a (security, portfolio)
// scope considering only transactions dated at or before the given date
// (end-of-day convention).
func SharesHeldAt(txns []*Transaction, securityID, portfolioID uuid.UUID, date time.Time) money.Shares {
	var sum money.Shares
	for _, t := range txns {
		if t.SecurityID == nil || *t.SecurityID != securityID {
			continue
		}
		if t.OwnerKind != OwnerPortfolio || t.OwnerID != portfolioID {
			continue
		}
		if t.Date.After(date) {
			continue
		}
		sum += t.SignedShares()
	}
	return sum
}
