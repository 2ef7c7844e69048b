// Package testutil provides test utilities for the gtx project: an isolated
// in-memory database, fixture builders and a fixed clock.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
	"github.com/gtxlabs/gtxips/internal/service"
	"github.com/gtxlabs/gtxips/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
	path    string
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.AddUser("u1", model.RoleUser)
//	db.AddRecord(2024, time.January, "50000")
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SetupFileTestDB creates a migrated database in a temporary directory.
// Unlike SetupTestDB it can be modified behind the storage layer with
// ExecRaw, which is how legacy rows are seeded.
func SetupFileTestDB(t *testing.T) *TestDB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gtx.db")
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t, path: path}
}

// ExecRaw runs a statement on a separate connection, bypassing validation.
func (db *TestDB) ExecRaw(query string, args ...any) {
	db.t.Helper()
	if db.path == "" {
		db.t.Fatal("ExecRaw needs a database created with SetupFileTestDB")
	}

	raw, err := sql.Open("sqlite3", db.path+"?_busy_timeout=5000")
	if err != nil {
		db.t.Fatalf("failed to open raw connection: %v", err)
	}
	defer func() { _ = raw.Close() }()

	if _, err := raw.Exec(query, args...); err != nil {
		db.t.Fatalf("raw statement failed: %v", err)
	}
}

// AddUser creates a profile with the given role.
func (db *TestDB) AddUser(id string, role model.Role) *model.Profile {
	db.t.Helper()
	p := &model.Profile{ID: id, Name: "User " + id, Role: role}
	if err := db.Storage.SaveProfile(context.Background(), p); err != nil {
		db.t.Fatalf("failed to seed profile %q: %v", id, err)
	}
	return p
}

// AddRecord creates the financial record of a month with the neutral
// quotation. Quotations are left for the engine to compute.
func (db *TestDB) AddRecord(year int, month time.Month, cash string) *model.FinancialRecord {
	db.t.Helper()
	r := &model.FinancialRecord{
		Period:        date.NewPeriod(year, month),
		CashGenerated: money.MustMoney(cash),
	}
	if err := db.Storage.UpsertFinancialRecord(context.Background(), r); err != nil {
		db.t.Fatalf("failed to seed financial record %s: %v", r.Period, err)
	}
	return r
}

// Quotations returns the stored quotation of every record keyed by "MM/YYYY".
func (db *TestDB) Quotations() map[string]string {
	db.t.Helper()
	records, err := db.Storage.ListFinancialRecords(context.Background())
	if err != nil {
		db.t.Fatalf("failed to list financial records: %v", err)
	}
	out := make(map[string]string, len(records))
	for _, r := range records {
		out[r.Period.String()] = r.Quotation.String()
	}
	return out
}

// Balance returns the cached balance of a user.
func (db *TestDB) Balance(userID string) string {
	db.t.Helper()
	b, err := db.Storage.GetBalance(context.Background(), userID)
	if err != nil {
		db.t.Fatalf("failed to get balance of %q: %v", userID, err)
	}
	return b.String()
}

// LedgerBalance sums a user's ledger entries independently of the cache.
func (db *TestDB) LedgerBalance(userID string) string {
	db.t.Helper()
	entries, err := db.Storage.ListTransactions(context.Background(), service.TransactionFilter{UserID: userID})
	if err != nil {
		db.t.Fatalf("failed to list ledger of %q: %v", userID, err)
	}
	var total money.Points
	for _, e := range entries {
		total = total.Add(e.Effect())
	}
	return total.String()
}

// WithTransaction executes the given function within a database transaction.
// The transaction is automatically rolled back after the function completes.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	tx, err := db.Storage.BeginTx(context.Background())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}

// FixedClock is a clock that always reports the same day.
type FixedClock struct {
	Day date.Date
}

// Today returns the fixed day.
func (c FixedClock) Today() date.Date { return c.Day }

// ClockAt returns a FixedClock for an ISO date.
func ClockAt(day string) FixedClock {
	return FixedClock{Day: date.MustParse(day)}
}

// Credit builds a credit ledger entry.
func Credit(userID, day string, amount int64) *model.Transaction {
	return entry(userID, day, model.TypeCredit, amount)
}

// Debit builds a debit ledger entry.
func Debit(userID, day string, amount int64) *model.Transaction {
	return entry(userID, day, model.TypeDebit, amount)
}

func entry(userID, day string, typ model.TransactionType, amount int64) *model.Transaction {
	return &model.Transaction{
		UserID: userID,
		Date:   date.MustParse(day),
		Reason: string(typ) + " " + day,
		Type:   typ,
		Amount: money.PointsFromInt(amount),
	}
}
