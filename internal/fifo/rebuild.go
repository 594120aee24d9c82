package fifo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkozlov/basistrack/internal/ledger"
	"github.com/pkozlov/basistrack/pkg/logger"
)

// Rebuilder recomputes and persists lot state. There is deliberately no
// incremental-update path: a rebuild always derives the full state for a
// security from its transactions and swaps it in atomically.
type Rebuilder struct {
	feed     ledger.TransactionReader
	resolver ledger.CrossEntryResolver
	store    LotStore
	log      *logger.Logger
}

// NewRebuilder creates a rebuilder wired to its collaborators.
func NewRebuilder(feed ledger.TransactionReader, resolver ledger.CrossEntryResolver, store LotStore, log *logger.Logger) *Rebuilder {
	if log == nil {
		log = logger.Discard()
	}
	return &Rebuilder{feed: feed, resolver: resolver, store: store, log: log}
}

// RebuildSecurity recomputes the complete lot state for one security and
// replaces the stored state in a single store transaction.
func (r *Rebuilder) RebuildSecurity(ctx context.Context, securityID uuid.UUID) (Result, error) {
	txns, err := r.feed.ListBySecurity(ctx, securityID)
	if err != nil {
		return Result{}, fmt.Errorf("listing transactions for security %s: %w", securityID, err)
	}

	result, err := ComputeLots(ctx, txns, r.resolver, r.log.WithField("security_id", securityID))
	if err != nil {
		return Result{}, err
	}

	if err := r.store.ReplaceForSecurity(ctx, securityID, result.Lots, result.Consumptions); err != nil {
		return Result{}, fmt.Errorf("storing lots for security %s: %w", securityID, err)
	}

	r.log.Info("rebuilt lots",
		"security_id", securityID,
		"transactions", len(txns),
		"lots", len(result.Lots),
		"consumptions", len(result.Consumptions))

	return result, nil
}

// BatchResult summarizes a rebuild across all securities.
type BatchResult struct {
	Total   int
	Rebuilt int
	Failed  []uuid.UUID
}

// RebuildAll rebuilds every security sequentially. One security's failure is
// logged and recorded but does not abort the batch; the batch as a whole is
// not atomic and partial progress is expected.
func (r *Rebuilder) RebuildAll(ctx context.Context) (BatchResult, error) {
	ids, err := r.feed.ListSecurityIDs(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("listing securities: %w", err)
	}

	result := BatchResult{Total: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := r.RebuildSecurity(ctx, id); err != nil {
			r.log.Error("security rebuild failed", "security_id", id, "error", err)
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Rebuilt++
	}

	return result, nil
}
