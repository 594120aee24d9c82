package performance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkozlov/basistrack/internal/ledger"
	"github.com/pkozlov/basistrack/pkg/logger"
	"github.com/pkozlov/basistrack/pkg/money"
)

func newTestUUID(n byte) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte{n})
}

func testShares(n int64) money.Shares { return money.Shares(n * money.ShareScale) }

// price converts a human-readable amount into the 8-decimal price scale.
func price(whole int64) int64 { return whole * money.RateScale }

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

type fakePrices struct {
	history map[uuid.UUID][]PricePoint
}

func (f *fakePrices) History(_ context.Context, securityID uuid.UUID, until time.Time) ([]PricePoint, error) {
	var out []PricePoint
	for _, p := range f.history[securityID] {
		if !p.Date.After(until) {
			out = append(out, p)
		}
	}
	return out, nil
}

func buyTxn(portfolio, sec uuid.UUID, date time.Time, n int64) *ledger.Transaction {
	return &ledger.Transaction{
		ID: uuid.New(), OwnerKind: ledger.OwnerPortfolio, OwnerID: portfolio,
		Type: ledger.TypeBuy, Date: date, SecurityID: &sec,
		Shares: testShares(n), Amount: money.Cents(n * 10_000), Currency: "EUR",
	}
}

func sellTxn(portfolio, sec uuid.UUID, date time.Time, n int64) *ledger.Transaction {
	return &ledger.Transaction{
		ID: uuid.New(), OwnerKind: ledger.OwnerPortfolio, OwnerID: portfolio,
		Type: ledger.TypeSell, Date: date, SecurityID: &sec,
		Shares: testShares(n), Amount: money.Cents(n * 10_000), Currency: "EUR",
	}
}

func TestSeriesBuilder_PricesHeldShares(t *testing.T) {
	portfolio := newTestUUID(10)
	sec := newTestUUID(11)
	feed := &fakeFeed{txns: []*ledger.Transaction{
		buyTxn(portfolio, sec, day(2024, 1, 1), 10),
		sellTxn(portfolio, sec, day(2024, 1, 20), 4),
	}}
	prices := &fakePrices{history: map[uuid.UUID][]PricePoint{
		sec: {
			{Date: day(2024, 1, 1), Price: price(100)},
			{Date: day(2024, 1, 10), Price: price(110)},
			{Date: day(2024, 1, 20), Price: price(90)},
		},
	}}

	b := NewSeriesBuilder(feed, prices, logger.Discard())
	series, err := b.Build(context.Background(), portfolio, day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)

	require.Len(t, series, 3)
	assert.Equal(t, money.Cents(100_000), series[0].Value) // 10 × 100.00
	assert.Equal(t, money.Cents(110_000), series[1].Value) // 10 × 110.00
	assert.Equal(t, money.Cents(54_000), series[2].Value)  // 6 × 90.00, sell same day counts
}

func TestSeriesBuilder_SkipsDatesBeforeFirstPurchase(t *testing.T) {
	portfolio := newTestUUID(12)
	sec := newTestUUID(13)
	feed := &fakeFeed{txns: []*ledger.Transaction{
		buyTxn(portfolio, sec, day(2024, 2, 1), 5),
	}}
	prices := &fakePrices{history: map[uuid.UUID][]PricePoint{
		sec: {
			{Date: day(2024, 1, 15), Price: price(100)},
			{Date: day(2024, 2, 15), Price: price(120)},
		},
	}}

	b := NewSeriesBuilder(feed, prices, logger.Discard())
	series, err := b.Build(context.Background(), portfolio, day(2024, 1, 1), day(2024, 3, 1))
	require.NoError(t, err)

	// Nothing was held on Jan 15, so no point is emitted there.
	require.Len(t, series, 1)
	assert.Equal(t, day(2024, 2, 15), series[0].Date)
	assert.Equal(t, money.Cents(60_000), series[0].Value)
}

func TestSeriesBuilder_SumsAcrossSecurities(t *testing.T) {
	portfolio := newTestUUID(14)
	secA := newTestUUID(15)
	secB := newTestUUID(16)
	feed := &fakeFeed{txns: []*ledger.Transaction{
		buyTxn(portfolio, secA, day(2024, 1, 1), 2),
		buyTxn(portfolio, secB, day(2024, 1, 1), 3),
	}}
	prices := &fakePrices{history: map[uuid.UUID][]PricePoint{
		secA: {{Date: day(2024, 1, 5), Price: price(10)}},
		secB: {{Date: day(2024, 1, 5), Price: price(20)}},
	}}

	b := NewSeriesBuilder(feed, prices, logger.Discard())
	series, err := b.Build(context.Background(), portfolio, day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)

	require.Len(t, series, 1)
	assert.Equal(t, money.Cents(2_000+6_000), series[0].Value)
}

func TestSeriesBuilder_MissingPriceHistoryIsNotFatal(t *testing.T) {
	portfolio := newTestUUID(17)
	sec := newTestUUID(18)
	feed := &fakeFeed{txns: []*ledger.Transaction{
		buyTxn(portfolio, sec, day(2024, 1, 1), 5),
	}}

	b := NewSeriesBuilder(feed, &fakePrices{history: map[uuid.UUID][]PricePoint{}}, logger.Discard())
	series, err := b.Build(context.Background(), portfolio, day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestSeriesBuilder_EmptyFeed(t *testing.T) {
	b := NewSeriesBuilder(&fakeFeed{}, &fakePrices{}, logger.Discard())
	series, err := b.Build(context.Background(), newTestUUID(19), day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestReport_CombinesMetrics(t *testing.T) {
	portfolio := newTestUUID(20)
	sec := newTestUUID(21)
	account := newTestUUID(22)

	txns := []*ledger.Transaction{
		{ID: uuid.New(), OwnerKind: ledger.OwnerAccount, OwnerID: account,
			Type: ledger.TypeDeposit, Date: day(2023, 1, 1), Amount: 100_000, Currency: "EUR"},
		buyTxn(portfolio, sec, day(2023, 1, 1), 10),
	}
	prices := &fakePrices{history: map[uuid.UUID][]PricePoint{
		sec: {
			{Date: day(2023, 1, 1), Price: price(100)},
			{Date: day(2024, 1, 1), Price: price(110)},
		},
	}}

	svc := NewService(&fakeFeed{txns: txns}, prices, logger.Discard())
	report, err := svc.Report(context.Background(), portfolio, day(2023, 1, 1), day(2024, 1, 1))
	require.NoError(t, err)

	require.Len(t, report.Series, 2)
	assert.InDelta(t, 0.10, report.Ttwror.TotalReturn, 1e-9)
	require.True(t, report.Irr.Converged)
	assert.InDelta(t, 0.10, report.Irr.Irr, 1e-6)
}

func TestReport_EmptySeriesYieldsZeroMetrics(t *testing.T) {
	svc := NewService(&fakeFeed{}, &fakePrices{}, logger.Discard())
	report, err := svc.Report(context.Background(), newTestUUID(23), day(2024, 1, 1), day(2024, 2, 1))
	require.NoError(t, err)

	assert.Empty(t, report.Series)
	assert.Zero(t, report.Ttwror.TotalReturn)
	assert.False(t, report.Irr.Converged)
}
