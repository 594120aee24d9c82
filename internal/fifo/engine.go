package fifo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkozlov/basistrack/internal/ledger"
	"github.com/pkozlov/basistrack/pkg/logger"
	"github.com/pkozlov/basistrack/pkg/money"
)

// idNamespace seeds the deterministic (SHA1/v5) lot and consumption IDs.
// Deterministic IDs make a rebuild from the same transactions bit-identical,
// which is what lets the rebuild be a blind delete-then-reinsert.
var idNamespace = uuid.MustParse("9f2c1d76-4a1e-4c29-b1f5-3d8a6e0c5b42")

// Result is the complete derived lot state for one security.
type Result struct {
	Lots         []*Lot
	Consumptions []*Consumption
}

// ComputeLots derives the full Lot/Consumption state for one security from
// its transactions. It is a pure function apart from resolver lookups: no
// stored state is read or written. Data-quality problems (oversell,
// unresolved transfers) are logged and degrade the output; they never fail
// the computation. Only resolver infrastructure errors are returned.
//
// Transactions are processed in (date, type priority, ID) order so that
// same-day inbound events land before outbound ones.
func ComputeLots(ctx context.Context, txns []*ledger.Transaction, resolver ledger.CrossEntryResolver, log *logger.Logger) (Result, error) {
	if log == nil {
		log = logger.Discard()
	}

	ordered := make([]*ledger.Transaction, len(txns))
	copy(ordered, txns)
	ledger.SortForProcessing(ordered)

	e := &engine{log: log}

	for _, txn := range ordered {
		if !txn.AffectsLots() || txn.SecurityID == nil {
			continue
		}
		if txn.OwnerKind != ledger.OwnerPortfolio {
			log.Warn("skipping non-portfolio lot transaction",
				"transaction_id", txn.ID, "owner_kind", txn.OwnerKind)
			continue
		}

		switch txn.Type {
		case ledger.TypeBuy, ledger.TypeDeliveryInbound:
			e.createLot(txn)
		case ledger.TypeSell, ledger.TypeDeliveryOutbound:
			e.consume(txn)
		case ledger.TypeTransferIn:
			if err := e.transferIn(ctx, txn, resolver); err != nil {
				return Result{}, err
			}
		case ledger.TypeTransferOut:
			// Fully handled by the paired TRANSFER_IN.
		}
	}

	return Result{Lots: e.lots, Consumptions: e.consumptions}, nil
}

type engine struct {
	lots         []*Lot
	consumptions []*Consumption
	log          *logger.Logger
}

// createLot opens a new lot from a purchase or inbound delivery. The gross
// cost includes fees and taxes; the net cost is the bare amount.
func (e *engine) createLot(txn *ledger.Transaction) {
	lot := &Lot{
		ID:              lotID(txn.ID, 0),
		SecurityID:      *txn.SecurityID,
		PortfolioID:     txn.OwnerID,
		TransactionID:   txn.ID,
		PurchaseDate:    txn.Date,
		OriginalShares:  txn.Shares,
		RemainingShares: txn.Shares,
		GrossAmount:     txn.Amount + txn.Fees + txn.Taxes,
		NetAmount:       txn.Amount,
		Currency:        txn.Currency,
	}
	e.lots = append(e.lots, lot)
}

// consume walks the portfolio's lots in creation order and uses them up
// oldest-first. A shortfall beyond all available lots is logged and left
// unconsumed; it is not synthesized into a negative-cost lot.
func (e *engine) consume(txn *ledger.Transaction) {
	remaining := e.consumeFrom(txn.OwnerID, txn.Shares, txn)
	if remaining > 0 {
		e.log.Warn("sale exceeds available lot shares",
			"transaction_id", txn.ID,
			"security_id", txn.SecurityID,
			"portfolio_id", txn.OwnerID,
			"unconsumed_shares", remaining.String())
	}
}

// consumeFrom decrements lots of one portfolio FIFO until needed shares are
// consumed, emitting a Consumption per touched lot. It returns the shortfall
// that could not be satisfied.
func (e *engine) consumeFrom(portfolioID uuid.UUID, needed money.Shares, txn *ledger.Transaction) money.Shares {
	for _, lot := range e.lots {
		if needed <= 0 {
			break
		}
		if lot.PortfolioID != portfolioID || !lot.Open() {
			continue
		}

		take := lot.RemainingShares
		if take > needed {
			take = needed
		}

		e.consumptions = append(e.consumptions, &Consumption{
			ID:             consumptionID(txn.ID, lot.ID, len(e.consumptions)),
			LotID:          lot.ID,
			TransactionID:  txn.ID,
			SharesConsumed: take,
			GrossAmount:    money.ProportionalCents(lot.GrossAmount, take, lot.OriginalShares),
			NetAmount:      money.ProportionalCents(lot.NetAmount, take, lot.OriginalShares),
		})
		lot.RemainingShares -= take
		needed -= take
	}
	return needed
}

// transferIn moves lots from the source portfolio into the destination,
// preserving purchase dates and proportional cost so holding periods survive
// the transfer. When the cross entry cannot be resolved, or the source lots
// cannot cover the transferred quantity, the gap is filled with a zero-cost
// lot anchored at the transfer date. That understates cost basis, visibly,
// rather than inventing a plausible-looking one.
func (e *engine) transferIn(ctx context.Context, txn *ledger.Transaction, resolver ledger.CrossEntryResolver) error {
	sourceID, resolved, err := resolveSource(ctx, txn, resolver)
	if err != nil {
		return fmt.Errorf("resolving cross entry for transaction %s: %w", txn.ID, err)
	}

	if !resolved {
		e.log.Warn("transfer-in without resolvable cross entry, creating zero-cost lot",
			"transaction_id", txn.ID, "security_id", txn.SecurityID)
		e.appendFallbackLot(txn, txn.Shares, 0)
		return nil
	}

	if sourceID == txn.OwnerID {
		e.log.Warn("transfer-in resolves to its own portfolio, ignoring",
			"transaction_id", txn.ID, "portfolio_id", txn.OwnerID)
		return nil
	}

	needed := txn.Shares
	seq := 0
	// Snapshot the length: lots appended for the destination must not be
	// scanned as transfer sources in the same pass.
	for i, end := 0, len(e.lots); i < end && needed > 0; i++ {
		lot := e.lots[i]
		if lot.PortfolioID != sourceID || !lot.Open() {
			continue
		}

		take := lot.RemainingShares
		if take > needed {
			take = needed
		}

		moved := &Lot{
			ID:              lotID(txn.ID, seq),
			SecurityID:      lot.SecurityID,
			PortfolioID:     txn.OwnerID,
			TransactionID:   txn.ID,
			PurchaseDate:    lot.PurchaseDate,
			OriginalShares:  take,
			RemainingShares: take,
			GrossAmount:     money.ProportionalCents(lot.GrossAmount, take, lot.OriginalShares),
			NetAmount:       money.ProportionalCents(lot.NetAmount, take, lot.OriginalShares),
			Currency:        lot.Currency,
		}
		seq++

		e.consumptions = append(e.consumptions, &Consumption{
			ID:             consumptionID(txn.ID, lot.ID, len(e.consumptions)),
			LotID:          lot.ID,
			TransactionID:  txn.ID,
			SharesConsumed: take,
			GrossAmount:    moved.GrossAmount,
			NetAmount:      moved.NetAmount,
		})

		lot.RemainingShares -= take
		needed -= take
		e.lots = append(e.lots, moved)
	}

	if needed > 0 {
		e.log.Warn("transfer-in exceeds source lot shares, filling with zero-cost lot",
			"transaction_id", txn.ID,
			"source_portfolio_id", sourceID,
			"shortfall_shares", needed.String())
		e.appendFallbackLot(txn, needed, seq)
	}

	return nil
}

func (e *engine) appendFallbackLot(txn *ledger.Transaction, shares money.Shares, seq int) {
	e.lots = append(e.lots, &Lot{
		ID:              lotID(txn.ID, seq),
		SecurityID:      *txn.SecurityID,
		PortfolioID:     txn.OwnerID,
		TransactionID:   txn.ID,
		PurchaseDate:    txn.Date,
		OriginalShares:  shares,
		RemainingShares: shares,
		GrossAmount:     0,
		NetAmount:       0,
		Currency:        txn.Currency,
	})
}

func resolveSource(ctx context.Context, txn *ledger.Transaction, resolver ledger.CrossEntryResolver) (uuid.UUID, bool, error) {
	if txn.CrossEntryID == nil || resolver == nil {
		return uuid.Nil, false, nil
	}
	return resolver.SourcePortfolio(ctx, *txn.CrossEntryID)
}

func lotID(txnID uuid.UUID, seq int) uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("lot/%s/%d", txnID, seq)))
}

func consumptionID(txnID, lotID uuid.UUID, seq int) uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("consumption/%s/%s/%d", txnID, lotID, seq)))
}
