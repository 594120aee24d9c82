package fifo

import (
	"context"

	"github.com/google/uuid"
)

// LotStore persists derived lot state. ReplaceForSecurity must behave as a
// single logical transaction: either the security's previous lots and
// consumptions are fully replaced by the new set, or nothing changes.
type LotStore interface {
	ReplaceForSecurity(ctx context.Context, securityID uuid.UUID, lots []*Lot, consumptions []*Consumption) error
}
