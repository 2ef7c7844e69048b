package valuation

import (
	"sort"

	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
)

// Update is the recomputed quotation of one existing financial record.
type Update struct {
	Record   model.FinancialRecord // record with the new quotation applied
	Previous money.Money           // quotation the chain started from
	Stored   money.Money           // quotation before this sweep
	Balance  money.Points          // aggregate balance at the end of the month
	Result   Result
}

// Changed reports whether the stored quotation differs from the new one.
func (u Update) Changed() bool { return !u.Stored.Equal(u.Record.Quotation) }

// SortRecords orders records chronologically, in place.
func SortRecords(records []model.FinancialRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Period.Before(records[j].Period)
	})
}

// PreviousQuotation returns the quotation of the nearest record strictly
// before p, or money.One when there is none. Months without a record are
// skipped rather than read as 1.0.
func PreviousQuotation(records []model.FinancialRecord, p date.Period) money.Money {
	var best *model.FinancialRecord
	for i := range records {
		r := &records[i]
		if !r.Period.Before(p) {
			continue
		}
		if best == nil || best.Period.Before(r.Period) {
			best = r
		}
	}
	if best == nil {
		return money.One
	}
	return best.Quotation
}

// Sweep recomputes the quotation of every existing record whose period lies
// in [from, through], oldest first. Each new quotation is written into the
// working copy before the next month is computed, so a change ripples forward
// through the whole chain. Periods without a record are skipped and never
// synthesized. The input slices are not modified.
func Sweep(records []model.FinancialRecord, ledger []model.Transaction, from, through date.Period) []Update {
	working := make([]model.FinancialRecord, len(records))
	copy(working, records)
	SortRecords(working)

	replay := newBalanceReplay(ledger)

	var updates []Update
	for i := range working {
		rec := &working[i]
		if rec.Period.Before(from) || rec.Period.After(through) {
			continue
		}

		balance := replay.through(rec.Period.LastDay())
		previous := PreviousQuotation(working[:i], rec.Period)
		result := ComputeQuotation(rec.CashGenerated, balance, previous)

		stored := rec.Quotation
		rec.Quotation = result.Quotation

		updates = append(updates, Update{
			Record:   *rec,
			Previous: previous,
			Stored:   stored,
			Balance:  balance,
			Result:   result,
		})
	}
	return updates
}

// Project computes the quotation a period would get for the given cash
// figure without touching any record. It is used to preview a new month.
func Project(records []model.FinancialRecord, ledger []model.Transaction, p date.Period, cash money.Money) Result {
	balance := AggregateBalance(ledger, p.LastDay())
	return ComputeQuotation(cash, balance, PreviousQuotation(records, p))
}
