// Package performance derives portfolio performance metrics: a dated
// valuation series, true time-weighted returns, and internal rate of return.
// Valuation deliberately ignores FIFO lots: it prices the transaction-sum
// share count, so cost basis and valuation are computed independently from
// the same feed and only have to agree on total shares.
package performance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pkozlov/basistrack/internal/ledger"
	"github.com/pkozlov/basistrack/pkg/logger"
	"github.com/pkozlov/basistrack/pkg/money"
)

// PricePoint is one observation in a security's price series. The price
// carries 8 implied decimals per share.
type PricePoint struct {
	Date  time.Time
	Price int64
}

// PriceSource provides per-security price history.
type PriceSource interface {
	// History returns all observations dated at or before until, ascending.
	History(ctx context.Context, securityID uuid.UUID, until time.Time) ([]PricePoint, error)
}

// ValuationPoint is the portfolio's total value on one date.
type ValuationPoint struct {
	Date  time.Time
	Value money.Cents
}

// SeriesBuilder produces sparse portfolio valuation series.
type SeriesBuilder struct {
	feed   ledger.TransactionReader
	prices PriceSource
	log    *logger.Logger
}

// NewSeriesBuilder creates a valuation series builder.
func NewSeriesBuilder(feed ledger.TransactionReader, prices PriceSource, log *logger.Logger) *SeriesBuilder {
	if log == nil {
		log = logger.Discard()
	}
	return &SeriesBuilder{feed: feed, prices: prices, log: log}
}

// Build produces the portfolio's valuation series over [from, to]. A point
// is emitted for every date in range on which at least one held security has
// a new price observation; each security contributes shares-held-at-date
// times its price at or before that date. Securities without any usable
// price contribute nothing (logged, not fatal), and only dates with a
// positive total are kept.
func (b *SeriesBuilder) Build(ctx context.Context, portfolioID uuid.UUID, from, to time.Time) ([]ValuationPoint, error) {
	txns, err := b.feed.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for portfolio %s: %w", portfolioID, err)
	}

	securityIDs := heldSecurities(txns)
	if len(securityIDs) == 0 {
		return nil, nil
	}

	histories := make(map[uuid.UUID][]PricePoint, len(securityIDs))
	dateSet := make(map[time.Time]struct{})
	for _, secID := range securityIDs {
		history, err := b.prices.History(ctx, secID, to)
		if err != nil {
			return nil, fmt.Errorf("loading price history for security %s: %w", secID, err)
		}
		if len(history) == 0 {
			b.log.Warn("no price history for held security, it will not contribute to valuations",
				"security_id", secID, "portfolio_id", portfolioID)
			continue
		}
		histories[secID] = history
		for _, p := range history {
			if !p.Date.Before(from) && !p.Date.After(to) {
				dateSet[p.Date] = struct{}{}
			}
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var series []ValuationPoint
	for _, date := range dates {
		var total money.Cents
		for secID, history := range histories {
			held := ledger.SharesHeldAt(txns, secID, portfolioID, date)
			if held == 0 {
				continue
			}
			price, ok := priceAtOrBefore(history, date)
			if !ok {
				continue
			}
			total += money.ValueCents(held, price)
		}
		if total > 0 {
			series = append(series, ValuationPoint{Date: date, Value: total})
		}
	}

	return series, nil
}

// heldSecurities returns the distinct securities with any share-moving
// transaction in the feed, in first-seen order.
func heldSecurities(txns []*ledger.Transaction) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, txn := range txns {
		if txn.SecurityID == nil || txn.SignedShares() == 0 {
			continue
		}
		if _, ok := seen[*txn.SecurityID]; ok {
			continue
		}
		seen[*txn.SecurityID] = struct{}{}
		ids = append(ids, *txn.SecurityID)
	}
	return ids
}

// priceAtOrBefore finds the latest observation not after date in an
// ascending history.
func priceAtOrBefore(history []PricePoint, date time.Time) (int64, bool) {
	idx := sort.Search(len(history), func(i int) bool {
		return history[i].Date.After(date)
	})
	if idx == 0 {
		return 0, false
	}
	return history[idx-1].Price, true
}
