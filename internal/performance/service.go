package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkozlov/basistrack/internal/ledger"
	"github.com/pkozlov/basistrack/pkg/logger"
)

// Report bundles both performance metrics for one portfolio and range.
type Report struct {
	PortfolioID uuid.UUID
	From        time.Time
	To          time.Time
	Ttwror      TtwrorResult
	Irr         IrrResult
	Series      []ValuationPoint
	Flows       []CashFlow
}

// Service computes performance reports from the transaction feed and price
// history.
type Service struct {
	feed    ledger.TransactionReader
	builder *SeriesBuilder
	log     *logger.Logger
}

// NewService creates a performance service.
func NewService(feed ledger.TransactionReader, prices PriceSource, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		feed:    feed,
		builder: NewSeriesBuilder(feed, prices, log),
		log:     log,
	}
}

// Report computes TTWROR and IRR for a portfolio over [from, to]. The IRR
// terminal value is the last valuation in range; with fewer than one
// valuation point the report carries zero-valued metrics rather than an
// error, since a freshly opened portfolio legitimately has no priced
// history yet.
func (s *Service) Report(ctx context.Context, portfolioID uuid.UUID, from, to time.Time) (Report, error) {
	series, err := s.builder.Build(ctx, portfolioID, from, to)
	if err != nil {
		return Report{}, fmt.Errorf("building valuation series: %w", err)
	}

	txns, err := s.feed.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return Report{}, fmt.Errorf("listing transactions for portfolio %s: %w", portfolioID, err)
	}
	flows := CashFlows(txns, from, to)

	report := Report{
		PortfolioID: portfolioID,
		From:        from,
		To:          to,
		Series:      series,
		Flows:       flows,
	}
	if len(series) == 0 {
		s.log.Info("no valuations in range, returning empty performance report",
			"portfolio_id", portfolioID, "from", from, "to", to)
		return report, nil
	}

	report.Ttwror = Ttwror(series, flows)
	terminal := series[len(series)-1]
	report.Irr = Irr(flows, terminal.Value, terminal.Date)
	return report, nil
}
