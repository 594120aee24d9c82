package ledger

import (
	"context"

	"github.com/google/uuid"
)

// TransactionReader provides read access to the immutable transaction feed.
type TransactionReader interface {
	// ListBySecurity returns every transaction touching the security across
	// all portfolios, in no particular order.
	ListBySecurity(ctx context.Context, securityID uuid.UUID) ([]*Transaction, error)

	// ListByPortfolio returns every transaction owned by the portfolio.
	ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*Transaction, error)

	// ListSecurityIDs returns the IDs of all securities that have at least
	// one transaction. Used by the batch rebuild driver.
	ListSecurityIDs(ctx context.Context) ([]uuid.UUID, error)
}

// CrossEntryResolver resolves the portfolio that owns the outbound side of a
// linked transfer pair. The second return value is false when the cross entry
// cannot be resolved; that is a valid, handled outcome, not an error. An
// error is returned only for infrastructure failures.
type CrossEntryResolver interface {
	SourcePortfolio(ctx context.Context, crossEntryID uuid.UUID) (uuid.UUID, bool, error)
}
