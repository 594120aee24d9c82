package performance

import (
	"sort"
	"time"

	"github.com/pkozlov/basistrack/internal/ledger"
	"github.com/pkozlov/basistrack/pkg/money"
)

// CashFlow is external capital moving in or out of the portfolio on a date.
// Positive amounts are contributions by the investor, negative are
// withdrawals.
type CashFlow struct {
	Date   time.Time
	Amount money.Cents
}

// CashFlows derives the external cash flow series from the transaction feed:
// deposits contribute positively, removals negatively. Flows outside
// [from, to] are dropped and the result is date-ascending.
func CashFlows(txns []*ledger.Transaction, from, to time.Time) []CashFlow {
	var flows []CashFlow
	for _, txn := range txns {
		if txn.Date.Before(from) || txn.Date.After(to) {
			continue
		}
		switch txn.Type {
		case ledger.TypeDeposit:
			flows = append(flows, CashFlow{Date: txn.Date, Amount: txn.Amount})
		case ledger.TypeRemoval:
			flows = append(flows, CashFlow{Date: txn.Date, Amount: -txn.Amount})
		}
	}
	sort.SliceStable(flows, func(i, j int) bool { return flows[i].Date.Before(flows[j].Date) })
	return flows
}

// flowOn sums the cash flows recorded on the given calendar day.
func flowOn(flows []CashFlow, date time.Time) money.Cents {
	var sum money.Cents
	y, m, d := date.Date()
	for _, f := range flows {
		fy, fm, fd := f.Date.Date()
		if fy == y && fm == m && fd == d {
			sum += f.Amount
		}
	}
	return sum
}
