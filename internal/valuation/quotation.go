// Package valuation computes the monthly GTXip quotation. Everything here is
// pure: callers load the ledger and financial records, and persist results.
package valuation

import (
	"github.com/gtxlabs/gtxips/internal/money"
)

// variationShift scales the surplus down to a per-point variation:
// (surplus / 10000) / 100.
const variationShift = -6

// Result is the breakdown of one month's quotation.
type Result struct {
	Liability money.Money // aggregate balance valued at the previous quotation
	Surplus   money.Money // cash generated minus liability
	Variation money.Money // monthly variation, exact
	Quotation money.Money // previous + variation, rounded to 4 places
}

// ComputeQuotation applies the valuation formula:
//
//	liability = aggregateBalance * previous
//	surplus   = cash - liability
//	variation = surplus / 1_000_000
//	quotation = previous + variation
func ComputeQuotation(cash money.Money, aggregateBalance money.Points, previous money.Money) Result {
	liability := aggregateBalance.Times(previous)
	surplus := cash.Sub(liability)
	variation := surplus.Shift(variationShift)
	return Result{
		Liability: liability,
		Surplus:   surplus,
		Variation: variation,
		Quotation: previous.Add(variation).Quotation(),
	}
}
