package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
	"github.com/gtxlabs/gtxips/internal/service"
	"github.com/gtxlabs/gtxips/internal/valuation"
)

// Treasury manages the monthly financial records. The stored quotation is
// never supplied by the caller: each change sweeps the chain from the
// affected month.
type Treasury struct {
	coord *Coordinator
	clock Clock
}

// NewTreasury creates a treasury on top of coord.
func NewTreasury(coord *Coordinator, clock Clock) *Treasury {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Treasury{coord: coord, clock: clock}
}

// RecordCash stores the cash generated in p, creating the month's record if
// needed, and recalculates from p.
func (t *Treasury) RecordCash(ctx context.Context, p date.Period, cash money.Money) (*model.FinancialRecord, *RecalcReport, error) {
	if p.After(t.clock.Today().Period()) {
		return nil, nil, fmt.Errorf("%s: %w", p, ErrFuturePeriod)
	}

	var record *model.FinancialRecord
	result, err := t.coord.run(ctx, "record cash", func(ctx context.Context, store service.Storage) (*mutation, error) {
		record = &model.FinancialRecord{Period: p, CashGenerated: cash}
		if err := store.UpsertFinancialRecord(ctx, record); err != nil {
			return nil, err
		}
		return &mutation{anchor: p.FirstDay()}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return t.reload(ctx, record.ID, result.Recalc)
}

// UpdateCash changes the cash generated of an existing record.
func (t *Treasury) UpdateCash(ctx context.Context, id string, cash money.Money) (*model.FinancialRecord, *RecalcReport, error) {
	var record *model.FinancialRecord
	result, err := t.coord.run(ctx, "update cash", func(ctx context.Context, store service.Storage) (*mutation, error) {
		existing, err := store.GetFinancialRecord(ctx, id)
		if err != nil {
			return nil, err
		}
		record = &model.FinancialRecord{Period: existing.Period, CashGenerated: cash}
		if err := store.UpsertFinancialRecord(ctx, record); err != nil {
			return nil, err
		}
		return &mutation{anchor: record.Period.FirstDay()}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return t.reload(ctx, record.ID, result.Recalc)
}

// RemoveRecord deletes a record. Later months chain from the nearest earlier
// record that remains.
func (t *Treasury) RemoveRecord(ctx context.Context, id string) (*RecalcReport, error) {
	result, err := t.coord.run(ctx, "remove financial record", func(ctx context.Context, store service.Storage) (*mutation, error) {
		record, err := store.GetFinancialRecord(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := store.DeleteFinancialRecord(ctx, id); err != nil {
			return nil, err
		}
		return &mutation{anchor: record.Period.FirstDay()}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.Recalc, nil
}

// Preview computes the quotation p would get for cash without persisting
// anything.
func (t *Treasury) Preview(ctx context.Context, p date.Period, cash money.Money) (valuation.Result, error) {
	ledger, err := t.coord.storage.ListTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return valuation.Result{}, fmt.Errorf("failed to load ledger: %w", err)
	}
	records, err := t.coord.storage.ListFinancialRecords(ctx)
	if err != nil {
		return valuation.Result{}, fmt.Errorf("failed to load financial records: %w", err)
	}
	return valuation.Project(records, ledger, p, cash), nil
}

// MonthSummary is one row of a year overview. Record is nil for months whose
// cash generation has not been entered yet.
type MonthSummary struct {
	Record    *model.FinancialRecord
	Period    date.Period
	Variation money.Money
}

// Pending reports whether the month has no record yet.
func (m MonthSummary) Pending() bool { return m.Record == nil }

// YearOverview summarizes a year of financial records.
type YearOverview struct {
	Latest          *model.FinancialRecord
	Months          []MonthSummary
	AccumulatedCash money.Money
	// VariationPercent is the change of the latest quotation relative to the
	// quotation it chained from, in percent with two decimals.
	VariationPercent decimal.Decimal
	Year             int
}

// YearOverview returns twelve month rows for year.
func (t *Treasury) YearOverview(ctx context.Context, year int) (*YearOverview, error) {
	records, err := t.coord.storage.ListFinancialRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load financial records: %w", err)
	}

	byPeriod := make(map[date.Period]model.FinancialRecord, len(records))
	for _, r := range records {
		byPeriod[r.Period] = r
	}

	overview := &YearOverview{Year: year, Months: make([]MonthSummary, 0, 12)}
	for m := time.January; m <= time.December; m++ {
		p := date.NewPeriod(year, m)
		row := MonthSummary{Period: p}
		if r, ok := byPeriod[p]; ok {
			rec := r
			previous := valuation.PreviousQuotation(records, p)
			row.Record = &rec
			row.Variation = rec.Quotation.Sub(previous)
			overview.AccumulatedCash = overview.AccumulatedCash.Add(rec.CashGenerated)
			overview.Latest = &rec
			if !previous.IsZero() {
				overview.VariationPercent = row.Variation.Decimal().
					Div(previous.Decimal()).
					Mul(decimal.NewFromInt(100)).
					Round(2)
			}
		}
		overview.Months = append(overview.Months, row)
	}
	return overview, nil
}

func (t *Treasury) reload(ctx context.Context, id string, report *RecalcReport) (*model.FinancialRecord, *RecalcReport, error) {
	record, err := t.coord.storage.GetFinancialRecord(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return record, report, nil
}
