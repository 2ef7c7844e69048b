package valuation

import (
	"sort"

	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
)

// AggregateBalance replays the whole ledger and returns the sum of every
// user's balance as of the end of asOf (credits positive, debits negative).
func AggregateBalance(ledger []model.Transaction, asOf date.Date) money.Points {
	total := money.Points{}
	for _, txn := range ledger {
		if txn.Date.After(asOf) {
			continue
		}
		total = total.Add(txn.Effect())
	}
	return total
}

// BalancesFromLedger recomputes every user's balance from scratch.
func BalancesFromLedger(ledger []model.Transaction) map[string]money.Points {
	balances := make(map[string]money.Points)
	for _, txn := range ledger {
		balances[txn.UserID] = balances[txn.UserID].Add(txn.Effect())
	}
	return balances
}

// balanceReplay yields aggregate balances for non-decreasing cut-off dates
// with a single pass over a date-sorted ledger.
type balanceReplay struct {
	ledger []model.Transaction
	next   int
	total  money.Points
}

func newBalanceReplay(ledger []model.Transaction) *balanceReplay {
	sorted := make([]model.Transaction, len(ledger))
	copy(sorted, ledger)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return &balanceReplay{ledger: sorted}
}

// through returns the aggregate balance of every entry dated on or before
// asOf. Successive calls must use non-decreasing dates.
func (r *balanceReplay) through(asOf date.Date) money.Points {
	for r.next < len(r.ledger) && !r.ledger[r.next].Date.After(asOf) {
		r.total = r.total.Add(r.ledger[r.next].Effect())
		r.next++
	}
	return r.total
}
