package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gtxlabs/gtxips/internal/common"
	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/service"
	"github.com/gtxlabs/gtxips/internal/valuation"
)

// RecalcReport summarizes one sweep of the quotation chain.
type RecalcReport struct {
	From      date.Period
	Through   date.Period
	Updates   []valuation.Update
	Failed    []date.Period
	Written   int
	Unchanged int
}

// Recalculator rewrites stored quotations from a month forward.
type Recalculator struct {
	storage service.Storage
	clock   Clock
	mode    RecalcMode
	retry   service.RetryOptions
}

// NewRecalculator creates a recalculator over storage.
func NewRecalculator(storage service.Storage, cfg Config) *Recalculator {
	cfg = cfg.withDefaults()
	return &Recalculator{
		storage: storage,
		clock:   cfg.Clock,
		mode:    cfg.Mode,
		retry:   cfg.Retry,
	}
}

// Mode returns the configured failure mode.
func (r *Recalculator) Mode() RecalcMode { return r.mode }

// RecalculateFrom recomputes the quotation of every existing financial record
// from the month of from through the current month. In atomic mode the sweep
// runs in its own database transaction.
func (r *Recalculator) RecalculateFrom(ctx context.Context, from date.Date) (*RecalcReport, error) {
	if r.mode == ModeBestEffort {
		return r.recalculate(ctx, r.storage, from)
	}

	tx, err := r.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin recalculation: %w", err)
	}
	report, err := r.recalculate(ctx, tx, from)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit recalculation: %w", err)
	}
	return report, nil
}

// recalculate sweeps using store, which may be a transaction. A failed write
// aborts the sweep in atomic mode and is logged and skipped otherwise.
func (r *Recalculator) recalculate(ctx context.Context, store service.Storage, from date.Date) (*RecalcReport, error) {
	through := r.clock.Today().Period()
	report := &RecalcReport{From: from.Period(), Through: through}
	if report.From.After(through) {
		slog.Debug("Nothing to recalculate", "from", report.From, "through", through)
		return report, nil
	}

	ledger, err := store.ListTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	records, err := store.ListFinancialRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load financial records: %w", err)
	}

	report.Updates = valuation.Sweep(records, ledger, report.From, through)
	for _, u := range report.Updates {
		if !u.Changed() {
			report.Unchanged++
			continue
		}

		err := common.WithRetry(ctx, func() error {
			return store.SetQuotation(ctx, u.Record.ID, u.Record.Quotation)
		}, r.retry)
		if err != nil {
			if r.mode == ModeAtomic {
				return nil, fmt.Errorf("failed to write quotation for %s: %w", u.Record.Period, err)
			}
			common.LogError(err, "Failed to write quotation, continuing", common.Fields{
				"period": u.Record.Period.String(),
				"record": u.Record.ID,
			})
			report.Failed = append(report.Failed, u.Record.Period)
			continue
		}

		report.Written++
		slog.Debug("Recalculated quotation",
			"period", u.Record.Period.String(),
			"previous", u.Previous.String(),
			"aggregate_balance", u.Balance.String(),
			"quotation", u.Record.Quotation.String())
	}

	slog.Info("Recalculation finished",
		"from", report.From.String(),
		"through", through.String(),
		"records", len(report.Updates),
		"written", report.Written,
		"failed", len(report.Failed))
	return report, nil
}
