package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gtxlabs/gtxips/internal/common"
	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/money"
	"github.com/gtxlabs/gtxips/internal/service"
	"github.com/gtxlabs/gtxips/internal/valuation"
)

// ProgressFunc reports how many of total items have been processed.
type ProgressFunc func(done, total int)

// BalanceDrift records a cached balance that disagreed with the ledger.
type BalanceDrift struct {
	UserID string
	Cached money.Points
	Ledger money.Points
}

// ResyncReport summarizes a full balance resync.
type ResyncReport struct {
	Drift    []BalanceDrift
	Profiles int
}

// FixDatesReport summarizes a ledger date repair.
type FixDatesReport struct {
	Recalc   *RecalcReport
	Resync   *ResyncReport
	Invalid  []string
	Scanned  int
	Repaired int
}

// Resync recomputes every user's balance from the whole ledger and
// overwrites the cache. It is idempotent.
func (c *Coordinator) Resync(ctx context.Context, progress ProgressFunc) (*ResyncReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var report *ResyncReport
	_, err := c.inTx(ctx, func(tx service.Transaction) (*mutation, error) {
		var err error
		report, err = resync(ctx, tx, progress)
		return &mutation{}, err
	})
	if err != nil {
		return nil, fmt.Errorf("resync: %w", err)
	}

	slog.Info("Balances resynchronized", "profiles", report.Profiles, "drifted", len(report.Drift))
	c.notifyRefresh(ctx)
	return report, nil
}

func resync(ctx context.Context, store service.Storage, progress ProgressFunc) (*ResyncReport, error) {
	ledger, err := store.ListTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	profiles, err := store.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	balances := valuation.BalancesFromLedger(ledger)
	report := &ResyncReport{Profiles: len(profiles)}
	for i, p := range profiles {
		want := balances[p.ID]
		if !want.Equal(p.Balance) {
			report.Drift = append(report.Drift, BalanceDrift{UserID: p.ID, Cached: p.Balance, Ledger: want})
			common.LogInfo("Correcting drifted balance", common.Fields{
				"user":   p.ID,
				"cached": p.Balance.String(),
				"ledger": want.String(),
			})
			if err := store.SetBalance(ctx, p.ID, want); err != nil {
				return nil, fmt.Errorf("failed to write balance of %s: %w", p.ID, err)
			}
		}
		if progress != nil {
			progress(i+1, len(profiles))
		}
	}
	return report, nil
}

// RecalculateBalance recomputes one user's balance from their ledger entries
// and overwrites the cache.
func (c *Coordinator) RecalculateBalance(ctx context.Context, userID string) (money.Points, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var balance money.Points
	_, err := c.inTx(ctx, func(tx service.Transaction) (*mutation, error) {
		if _, err := tx.GetProfile(ctx, userID); err != nil {
			return nil, err
		}
		entries, err := tx.ListTransactions(ctx, service.TransactionFilter{UserID: userID})
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger: %w", err)
		}
		for _, e := range entries {
			balance = balance.Add(e.Effect())
		}
		return &mutation{}, tx.SetBalance(ctx, userID, balance)
	})
	if err != nil {
		return money.Points{}, fmt.Errorf("recalculate balance: %w", err)
	}

	slog.Info("Balance recalculated", "user", userID, "balance", balance.String())
	c.notifyRefresh(ctx)
	return balance, nil
}

// FixDates rewrites ledger dates stored in a legacy layout (DD/MM/YYYY or
// "YYYY MM DD") as ISO dates, then resyncs balances and recalculates from the
// earliest repaired date. Unparseable rows are reported and left untouched;
// while any remain, balances and quotations are not rebuilt.
func (c *Coordinator) FixDates(ctx context.Context) (*FixDatesReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := &FixDatesReport{}
	m, err := c.inTx(ctx, func(tx service.Transaction) (*mutation, error) {
		raw, err := tx.ListRawTransactionDates(ctx)
		if err != nil {
			return nil, err
		}
		report.Scanned = len(raw)

		var earliest date.Date
		for _, r := range raw {
			d, legacy, err := date.ParseLenient(r.Date)
			if err != nil {
				slog.Warn("Unparseable ledger date", "transaction", r.ID, "date", r.Date)
				report.Invalid = append(report.Invalid, r.ID)
				continue
			}
			if !legacy {
				continue
			}
			if err := tx.SetTransactionDate(ctx, r.ID, d); err != nil {
				return nil, err
			}
			report.Repaired++
			if earliest.IsZero() || d.Before(earliest) {
				earliest = d
			}
		}
		if report.Repaired == 0 {
			return &mutation{}, nil
		}
		if len(report.Invalid) > 0 {
			// The ledger cannot be loaded while unparseable rows remain.
			slog.Warn("Skipping resync until every ledger date is valid", "invalid", len(report.Invalid))
			return &mutation{}, nil
		}

		if report.Resync, err = resync(ctx, tx, nil); err != nil {
			return nil, err
		}
		if c.recalc.Mode() == ModeAtomic {
			if report.Recalc, err = c.recalc.recalculate(ctx, tx, earliest); err != nil {
				return nil, err
			}
		}
		return &mutation{anchor: earliest}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fix dates: %w", err)
	}

	if !m.anchor.IsZero() && c.recalc.Mode() == ModeBestEffort {
		if report.Recalc, err = c.recalc.recalculate(ctx, c.storage, m.anchor); err != nil {
			return report, fmt.Errorf("dates repaired but recalculation failed: %w", err)
		}
	}

	slog.Info("Ledger dates repaired", "scanned", report.Scanned, "repaired", report.Repaired, "invalid", len(report.Invalid))
	c.notifyRefresh(ctx)
	return report, nil
}
