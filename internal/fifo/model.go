// Package fifo implements strict first-in-first-out lot accounting. It turns
// the transaction feed for one security into Lot and Consumption records,
// which are the source of truth for cost basis and realized gains.
package fifo

import (
	"time"

	"github.com/google/uuid"

	"github.com/pkozlov/basistrack/pkg/money"
)

// Lot is a tranche of shares purchased (or transferred in) together.
// GrossAmount and NetAmount are defined over OriginalShares; any partial
// value is recomputed proportionally from the originals, never stored
// pre-divided. A lot is mutated only by decrementing RemainingShares and is
// kept after full consumption for audit history.
type Lot struct {
	ID              uuid.UUID
	SecurityID      uuid.UUID
	PortfolioID     uuid.UUID
	TransactionID   uuid.UUID // originating BUY/DELIVERY_INBOUND/TRANSFER_IN
	PurchaseDate    time.Time
	OriginalShares  money.Shares
	RemainingShares money.Shares
	GrossAmount     money.Cents // cost including fees and taxes
	NetAmount       money.Cents // cost excluding fees and taxes
	Currency        string
}

// Validate checks the lot's structural invariants.
func (l *Lot) Validate() error {
	if l.OriginalShares <= 0 {
		return ErrNonPositiveLotShares
	}
	if l.RemainingShares < 0 || l.RemainingShares > l.OriginalShares {
		return ErrRemainingOutOfRange
	}
	if l.GrossAmount < 0 || l.NetAmount < 0 {
		return ErrNegativeLotCost
	}
	return nil
}

// Open reports whether the lot still holds shares.
func (l *Lot) Open() bool {
	return l.RemainingShares > 0
}

// RemainingGross returns the gross cost attributable to the remaining
// shares, computed as remaining/original × gross.
func (l *Lot) RemainingGross() money.Cents {
	return money.ProportionalCents(l.GrossAmount, l.RemainingShares, l.OriginalShares)
}

// RemainingNet returns the net cost attributable to the remaining shares.
func (l *Lot) RemainingNet() money.Cents {
	return money.ProportionalCents(l.NetAmount, l.RemainingShares, l.OriginalShares)
}

// Consumption records that SharesConsumed of a lot were used up by a sale,
// outbound delivery, or outbound side of a transfer. The attributed cost is
// the FIFO-proportional slice of the lot's original cost.
type Consumption struct {
	ID             uuid.UUID
	LotID          uuid.UUID
	TransactionID  uuid.UUID // the consuming transaction
	SharesConsumed money.Shares
	GrossAmount    money.Cents
	NetAmount      money.Cents
}
