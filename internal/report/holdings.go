// Package report combines the accounting side (FIFO cost basis) with the
// valuation side (priced share counts) into holdings summaries. This is the
// only place the two halves meet.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pkozlov/basistrack/internal/costbasis"
	"github.com/pkozlov/basistrack/internal/ledger"
	"github.com/pkozlov/basistrack/internal/performance"
	"github.com/pkozlov/basistrack/pkg/logger"
	"github.com/pkozlov/basistrack/pkg/money"
)

// CostBasisSource answers per-portfolio cost basis queries.
type CostBasisSource interface {
	PortfolioCostBasis(ctx context.Context, securityID, portfolioID uuid.UUID) (costbasis.Result, error)
}

// Holding is one security's position in a portfolio at a point in time.
type Holding struct {
	SecurityID     uuid.UUID
	Shares         money.Shares
	CostBasis      money.Cents
	MarketValue    money.Cents
	UnrealizedGain money.Cents
	Currency       string
	Priced         bool // false when no price was available
}

// Service assembles holdings summaries.
type Service struct {
	feed      ledger.TransactionReader
	costBasis CostBasisSource
	prices    performance.PriceSource
	log       *logger.Logger
}

// NewService creates a holdings report service.
func NewService(feed ledger.TransactionReader, costBasis CostBasisSource, prices performance.PriceSource, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{feed: feed, costBasis: costBasis, prices: prices, log: log}
}

// Holdings lists the portfolio's non-zero positions as of a date. Market
// value uses the latest price at or before asOf; positions without any price
// are still listed, flagged unpriced, with zero market value and gain.
func (s *Service) Holdings(ctx context.Context, portfolioID uuid.UUID, asOf time.Time) ([]Holding, error) {
	txns, err := s.feed.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for portfolio %s: %w", portfolioID, err)
	}

	seen := make(map[uuid.UUID]struct{})
	var holdings []Holding
	for _, txn := range txns {
		if txn.SecurityID == nil || txn.SignedShares() == 0 {
			continue
		}
		secID := *txn.SecurityID
		if _, ok := seen[secID]; ok {
			continue
		}
		seen[secID] = struct{}{}

		held := ledger.SharesHeldAt(txns, secID, portfolioID, asOf)
		if held == 0 {
			continue
		}

		basis, err := s.costBasis.PortfolioCostBasis(ctx, secID, portfolioID)
		if err != nil {
			return nil, fmt.Errorf("cost basis for security %s: %w", secID, err)
		}

		holding := Holding{
			SecurityID: secID,
			Shares:     held,
			CostBasis:  basis.CostBasis,
			Currency:   basis.Currency,
		}
		if basis.RemainingShares != held {
			// Lots and transaction sums disagree, usually a stale rebuild.
			s.log.Warn("lot state disagrees with transaction share sum",
				"security_id", secID, "portfolio_id", portfolioID,
				"lot_shares", basis.RemainingShares, "transaction_shares", held)
		}

		history, err := s.prices.History(ctx, secID, asOf)
		if err != nil {
			return nil, fmt.Errorf("price history for security %s: %w", secID, err)
		}
		if len(history) > 0 {
			latest := history[len(history)-1]
			holding.MarketValue = money.ValueCents(held, latest.Price)
			holding.UnrealizedGain = holding.MarketValue - holding.CostBasis
			holding.Priced = true
		} else {
			s.log.Warn("no price for held security, market value omitted",
				"security_id", secID, "portfolio_id", portfolioID)
		}

		holdings = append(holdings, holding)
	}

	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].SecurityID.String() < holdings[j].SecurityID.String()
	})
	return holdings, nil
}
