package fifo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkozlov/basistrack/internal/ledger"
	"github.com/pkozlov/basistrack/pkg/logger"
	"github.com/pkozlov/basistrack/pkg/money"
)

type fakeFeed struct {
	bySecurity map[uuid.UUID][]*ledger.Transaction
	listErr    map[uuid.UUID]error
}

func (f *fakeFeed) ListBySecurity(_ context.Context, securityID uuid.UUID) ([]*ledger.Transaction, error) {
	if err := f.listErr[securityID]; err != nil {
		return nil, err
	}
	return f.bySecurity[securityID], nil
}

func (f *fakeFeed) ListByPortfolio(_ context.Context, _ uuid.UUID) ([]*ledger.Transaction, error) {
	return nil, nil
}

func (f *fakeFeed) ListSecurityIDs(_ context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(f.bySecurity))
	for id := range f.bySecurity {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeStore struct {
	replaced map[uuid.UUID]Result
	calls    int
	failFor  map[uuid.UUID]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{replaced: make(map[uuid.UUID]Result), failFor: make(map[uuid.UUID]error)}
}

func (s *fakeStore) ReplaceForSecurity(_ context.Context, securityID uuid.UUID, lots []*Lot, consumptions []*Consumption) error {
	s.calls++
	if err := s.failFor[securityID]; err != nil {
		return err
	}
	s.replaced[securityID] = Result{Lots: lots, Consumptions: consumptions}
	return nil
}

func feedWithBuySell(sec uuid.UUID) *fakeFeed {
	portfolio := uuid.New()
	b := newTxnBuilder(sec)
	return &fakeFeed{
		bySecurity: map[uuid.UUID][]*ledger.Transaction{
			sec: {
				b.txn(portfolio, ledger.TypeBuy, day(2024, 1, 1), shares(100), 100_000),
				b.txn(portfolio, ledger.TypeSell, day(2024, 2, 1), shares(40), 50_000),
			},
		},
		listErr: map[uuid.UUID]error{},
	}
}

func TestRebuildSecurity_ReplacesStateInOneCall(t *testing.T) {
	sec := uuid.New()
	feed := feedWithBuySell(sec)
	store := newFakeStore()
	r := NewRebuilder(feed, nil, store, logger.Discard())

	result, err := r.RebuildSecurity(context.Background(), sec)
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls, "one atomic replace per security rebuild")
	stored := store.replaced[sec]
	assert.Equal(t, result.Lots, stored.Lots)
	assert.Equal(t, result.Consumptions, stored.Consumptions)
	require.Len(t, stored.Lots, 1)
	assert.Equal(t, money.Shares(60*money.ShareScale), stored.Lots[0].RemainingShares)
}

func TestRebuildSecurity_StoreFailurePropagates(t *testing.T) {
	sec := uuid.New()
	feed := feedWithBuySell(sec)
	store := newFakeStore()
	store.failFor[sec] = errors.New("connection reset")
	r := NewRebuilder(feed, nil, store, logger.Discard())

	_, err := r.RebuildSecurity(context.Background(), sec)
	assert.Error(t, err)
}

func TestRebuildAll_IsolatesFailures(t *testing.T) {
	secOK := uuid.New()
	secBad := uuid.New()
	portfolio := uuid.New()

	okBuilder := newTxnBuilder(secOK)
	feed := &fakeFeed{
		bySecurity: map[uuid.UUID][]*ledger.Transaction{
			secOK:  {okBuilder.txn(portfolio, ledger.TypeBuy, day(2024, 1, 1), shares(5), 5_000)},
			secBad: {},
		},
		listErr: map[uuid.UUID]error{
			secBad: errors.New("corrupted row"),
		},
	}
	store := newFakeStore()
	r := NewRebuilder(feed, nil, store, logger.Discard())

	result, err := r.RebuildAll(context.Background())
	require.NoError(t, err, "batch does not abort on a single security failure")

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Rebuilt)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, secBad, result.Failed[0])
	assert.Contains(t, store.replaced, secOK)
}

func TestRebuildAll_StopsOnCancelledContext(t *testing.T) {
	sec := uuid.New()
	feed := feedWithBuySell(sec)
	store := newFakeStore()
	r := NewRebuilder(feed, nil, store, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.RebuildAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
