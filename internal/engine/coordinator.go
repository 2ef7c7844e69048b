package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
	"github.com/gtxlabs/gtxips/internal/service"
)

// RefreshFunc is called after a change has been committed so that dependent
// views can reload ledger, balances and financial records.
type RefreshFunc func(ctx context.Context)

// MutationResult describes a committed ledger change.
type MutationResult struct {
	Transaction model.Transaction
	Deltas      map[string]money.Points
	Anchor      date.Date
	Recalc      *RecalcReport
}

// mutation is what a step inside a coordinated operation produced.
type mutation struct {
	txn    model.Transaction
	deltas map[string]money.Points
	anchor date.Date
}

func (m *mutation) add(userID string, delta money.Points) {
	if m.deltas == nil {
		m.deltas = make(map[string]money.Points)
	}
	m.deltas[userID] = m.deltas[userID].Add(delta)
}

// Coordinator serializes ledger mutations and keeps each user's cached
// balance equal to the sum of their ledger entries.
type Coordinator struct {
	storage service.Storage
	recalc  *Recalculator
	refresh RefreshFunc
	mu      sync.Mutex
}

// NewCoordinator creates a coordinator over storage.
func NewCoordinator(storage service.Storage, recalc *Recalculator) *Coordinator {
	return &Coordinator{
		storage: storage,
		recalc:  recalc,
	}
}

// OnRefresh registers fn to run after every committed change.
func (c *Coordinator) OnRefresh(fn RefreshFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh = fn
}

// Create records a new ledger entry and credits or debits its owner.
func (c *Coordinator) Create(ctx context.Context, txn *model.Transaction) (*MutationResult, error) {
	return c.run(ctx, "create", func(ctx context.Context, store service.Storage) (*mutation, error) {
		return ledgerEntry(ctx, store, txn)
	})
}

// Update replaces an existing ledger entry. The original effect is reverted
// on its owner and the new effect applied on the (possibly different) new
// owner. Recalculation starts at the earlier of the two dates.
func (c *Coordinator) Update(ctx context.Context, txn *model.Transaction) (*MutationResult, error) {
	return c.run(ctx, "update", func(ctx context.Context, store service.Storage) (*mutation, error) {
		original, err := store.GetTransaction(ctx, txn.ID)
		if err != nil {
			return nil, err
		}
		if err := store.UpdateTransaction(ctx, txn); err != nil {
			return nil, err
		}
		m := &mutation{txn: *txn, anchor: date.Min(original.Date, txn.Date)}
		m.add(original.UserID, original.Effect().Neg())
		m.add(txn.UserID, txn.Effect())
		return m, nil
	})
}

// Delete removes a ledger entry and reverses its effect on its owner.
func (c *Coordinator) Delete(ctx context.Context, id string) (*MutationResult, error) {
	return c.run(ctx, "delete", func(ctx context.Context, store service.Storage) (*mutation, error) {
		original, err := store.GetTransaction(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := store.DeleteTransaction(ctx, id); err != nil {
			return nil, err
		}
		m := &mutation{txn: *original, anchor: original.Date}
		m.add(original.UserID, original.Effect().Neg())
		return m, nil
	})
}

// Recalculate sweeps the quotation chain from the month of from, serialized
// with ledger mutations.
func (c *Coordinator) Recalculate(ctx context.Context, from date.Date) (*RecalcReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	report, err := c.recalc.RecalculateFrom(ctx, from)
	if err != nil {
		return nil, err
	}
	c.notifyRefresh(ctx)
	return report, nil
}

// run executes step and the balance writes in one database transaction, then
// sweeps the quotation chain from the step's anchor date. In atomic mode the
// sweep joins the same transaction.
func (c *Coordinator) run(ctx context.Context, op string, step func(context.Context, service.Storage) (*mutation, error)) (*MutationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var report *RecalcReport
	m, err := c.inTx(ctx, func(tx service.Transaction) (*mutation, error) {
		m, err := step(ctx, tx)
		if err != nil {
			return nil, err
		}
		if err := applyDeltas(ctx, tx, m.deltas); err != nil {
			return nil, err
		}
		if c.recalc.Mode() == ModeAtomic && !m.anchor.IsZero() {
			report, err = c.recalc.recalculate(ctx, tx, m.anchor)
			if err != nil {
				return nil, fmt.Errorf("failed to recalculate from %s: %w", m.anchor, err)
			}
		}
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s transaction: %w", op, err)
	}

	result := &MutationResult{
		Transaction: m.txn,
		Deltas:      m.deltas,
		Anchor:      m.anchor,
		Recalc:      report,
	}

	if c.recalc.Mode() == ModeBestEffort && !m.anchor.IsZero() {
		result.Recalc, err = c.recalc.recalculate(ctx, c.storage, m.anchor)
		if err != nil {
			c.notifyRefresh(ctx)
			return result, fmt.Errorf("%s committed but recalculation failed: %w", op, err)
		}
	}

	if m.txn.ID != "" {
		slog.Info("Ledger change applied",
			"operation", op,
			"transaction", m.txn.ID,
			"anchor", m.anchor.String(),
			"users", len(m.deltas))
	}
	c.notifyRefresh(ctx)
	return result, nil
}

// inTx runs fn inside a database transaction, committing on success.
func (c *Coordinator) inTx(ctx context.Context, fn func(tx service.Transaction) (*mutation, error)) (*mutation, error) {
	tx, err := c.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	m, err := fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("failed to rollback transaction", "error", rbErr)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return m, nil
}

func (c *Coordinator) notifyRefresh(ctx context.Context) {
	if c.refresh != nil {
		c.refresh(ctx)
	}
}

// applyDeltas adds each delta to the stored balance. Users are visited in a
// fixed order so that the writes are deterministic.
func applyDeltas(ctx context.Context, store service.Storage, deltas map[string]money.Points) error {
	users := make([]string, 0, len(deltas))
	for userID := range deltas {
		users = append(users, userID)
	}
	sort.Strings(users)

	for _, userID := range users {
		delta := deltas[userID]
		if delta.IsZero() {
			continue
		}
		current, err := store.GetBalance(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to read balance of %s: %w", userID, err)
		}
		if err := store.SetBalance(ctx, userID, current.Add(delta)); err != nil {
			return fmt.Errorf("failed to write balance of %s: %w", userID, err)
		}
	}
	return nil
}
