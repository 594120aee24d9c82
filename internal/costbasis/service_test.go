package costbasis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkozlov/basistrack/internal/fifo"
	"github.com/pkozlov/basistrack/internal/ledger"
	"github.com/pkozlov/basistrack/pkg/logger"
	"github.com/pkozlov/basistrack/pkg/money"
)

type fakeLotSource struct {
	lots []*fifo.Lot
}

func (f *fakeLotSource) ListLots(_ context.Context, _ uuid.UUID) ([]*fifo.Lot, error) {
	return f.lots, nil
}

type fakeConsumptionSource struct {
	consumptions []*fifo.Consumption
}

func (f *fakeConsumptionSource) ListConsumptions(_ context.Context, _ uuid.UUID) ([]*fifo.Consumption, error) {
	return f.consumptions, nil
}

type fakeFeed struct {
	txns []*ledger.Transaction
}

func (f *fakeFeed) ListBySecurity(_ context.Context, _ uuid.UUID) ([]*ledger.Transaction, error) {
	return f.txns, nil
}

func (f *fakeFeed) ListByPortfolio(_ context.Context, _ uuid.UUID) ([]*ledger.Transaction, error) {
	return f.txns, nil
}

func (f *fakeFeed) ListSecurityIDs(_ context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

// recordingConverter converts at a fixed rate and records the as-of dates it
// was asked for.
type recordingConverter struct {
	rate  int64
	asOfs []time.Time
}

func (c *recordingConverter) Convert(_ context.Context, amount money.Cents, from, to string, asOf time.Time) (money.Cents, error) {
	c.asOfs = append(c.asOfs, asOf)
	if from == to {
		return amount, nil
	}
	return money.ConvertCents(amount, c.rate), nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func shares(n int64) money.Shares { return money.Shares(n * money.ShareScale) }

func lot(portfolio uuid.UUID, purchase time.Time, original, remaining money.Shares, gross money.Cents, currency string) *fifo.Lot {
	return &fifo.Lot{
		ID:              uuid.New(),
		SecurityID:      uuid.New(),
		PortfolioID:     portfolio,
		TransactionID:   uuid.New(),
		PurchaseDate:    purchase,
		OriginalShares:  original,
		RemainingShares: remaining,
		GrossAmount:     gross,
		NetAmount:       gross,
		Currency:        currency,
	}
}

func TestCostBasis_SumsOpenLotsProportionally(t *testing.T) {
	portfolio := uuid.New()
	lots := &fakeLotSource{lots: []*fifo.Lot{
		// Half consumed: 100.01 over 2 of original 4 shares -> 50.01.
		lot(portfolio, day(2023, 1, 1), shares(4), shares(2), 10_001, "EUR"),
		lot(portfolio, day(2023, 2, 1), shares(10), shares(10), 50_000, "EUR"),
		// Fully consumed lots stay stored but contribute nothing.
		lot(portfolio, day(2023, 3, 1), shares(5), 0, 99_999, "EUR"),
	}}

	svc := NewService(lots, nil, nil, nil, logger.Discard())
	result, err := svc.CostBasis(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, shares(12), result.RemainingShares)
	// 10001*2/4 = 5001 (round up from 5000.5), plus 50000.
	assert.Equal(t, money.Cents(55_001), result.CostBasis)
	assert.Equal(t, "EUR", result.Currency)
}

func TestPortfolioCostBasis_FiltersByPortfolio(t *testing.T) {
	p1 := uuid.New()
	p2 := uuid.New()
	lots := &fakeLotSource{lots: []*fifo.Lot{
		lot(p1, day(2023, 1, 1), shares(10), shares(10), 10_000, "EUR"),
		lot(p2, day(2023, 1, 1), shares(20), shares(20), 20_000, "EUR"),
	}}

	svc := NewService(lots, nil, nil, nil, logger.Discard())
	result, err := svc.PortfolioCostBasis(context.Background(), uuid.New(), p2)
	require.NoError(t, err)

	assert.Equal(t, shares(20), result.RemainingShares)
	assert.Equal(t, money.Cents(20_000), result.CostBasis)
}

func TestCostBasisInCurrency_ConvertsAtPurchaseDate(t *testing.T) {
	portfolio := uuid.New()
	buy1Date := day(2015, 6, 1)
	buy2Date := day(2020, 3, 1)
	lots := &fakeLotSource{lots: []*fifo.Lot{
		lot(portfolio, buy1Date, shares(10), shares(10), 10_000, "USD"),
		lot(portfolio, buy2Date, shares(5), shares(5), 5_000, "USD"),
	}}

	converter := &recordingConverter{rate: 9000_0000} // 0.90
	svc := NewService(lots, nil, nil, converter, logger.Discard())

	result, err := svc.CostBasisInCurrency(context.Background(), uuid.New(), "EUR")
	require.NoError(t, err)

	assert.Equal(t, money.Cents(13_500), result.CostBasis)
	assert.Equal(t, "EUR", result.Currency)

	// The conversion dates must be the lots' purchase dates, never "today".
	require.Len(t, converter.asOfs, 2)
	assert.Equal(t, buy1Date, converter.asOfs[0])
	assert.Equal(t, buy2Date, converter.asOfs[1])
}

func TestRealizedGains_AttributesFIFOCost(t *testing.T) {
	sec := uuid.New()
	portfolio := uuid.New()

	sell := &ledger.Transaction{
		ID: uuid.New(), OwnerKind: ledger.OwnerPortfolio, OwnerID: portfolio,
		Type: ledger.TypeSell, Date: day(2024, 2, 1), SecurityID: &sec,
		Shares: shares(60), Amount: 90_000, Currency: "EUR",
	}
	lotA := lot(portfolio, day(2023, 1, 1), shares(100), shares(40), 100_000, "EUR")

	consumptions := &fakeConsumptionSource{consumptions: []*fifo.Consumption{
		{ID: uuid.New(), LotID: lotA.ID, TransactionID: sell.ID, SharesConsumed: shares(60), GrossAmount: 60_000, NetAmount: 60_000},
	}}
	feed := &fakeFeed{txns: []*ledger.Transaction{sell}}

	svc := NewService(nil, consumptions, feed, nil, logger.Discard())
	entries, err := svc.RealizedGains(context.Background(), sec)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, sell.ID, entry.TransactionID)
	assert.Equal(t, shares(60), entry.SharesSold)
	assert.Equal(t, money.Cents(60_000), entry.CostBasis)
	assert.Equal(t, money.Cents(90_000), entry.Proceeds)
	assert.Equal(t, money.Cents(30_000), entry.Gain)
}

func TestRealizedGains_ExcludesTransferConsumptions(t *testing.T) {
	sec := uuid.New()
	p1 := uuid.New()
	p2 := uuid.New()
	crossEntry := uuid.New()

	transferIn := &ledger.Transaction{
		ID: uuid.New(), OwnerKind: ledger.OwnerPortfolio, OwnerID: p2,
		Type: ledger.TypeTransferIn, Date: day(2024, 1, 1), SecurityID: &sec,
		Shares: shares(10), Currency: "EUR", CrossEntryID: &crossEntry,
	}
	lotA := lot(p1, day(2023, 1, 1), shares(10), 0, 10_000, "EUR")

	consumptions := &fakeConsumptionSource{consumptions: []*fifo.Consumption{
		{ID: uuid.New(), LotID: lotA.ID, TransactionID: transferIn.ID, SharesConsumed: shares(10), GrossAmount: 10_000, NetAmount: 10_000},
	}}
	feed := &fakeFeed{txns: []*ledger.Transaction{transferIn}}

	svc := NewService(nil, consumptions, feed, nil, logger.Discard())
	entries, err := svc.RealizedGains(context.Background(), sec)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
