package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtxlabs/gtxips/internal/common"
	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// createTestStorageWithUsers creates storage with one regular profile per ID.
func createTestStorageWithUsers(t *testing.T, ids ...string) (*SQLiteStorage, func()) {
	t.Helper()
	store, cleanup := createTestStorage(t)
	for _, id := range ids {
		require.NoError(t, store.SaveProfile(context.Background(), &model.Profile{
			ID:   id,
			Name: "User " + id,
			Role: model.RoleUser,
		}))
	}
	return store, cleanup
}

func newTestTransaction(userID, day string, typ model.TransactionType, amount int64) *model.Transaction {
	return &model.Transaction{
		UserID: userID,
		Date:   date.MustParse(day),
		Reason: "test",
		Type:   typ,
		Amount: money.PointsFromInt(amount),
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	t.Run("creates nested directories", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "a", "b", "gtx.db")
		store, err := NewSQLiteStorage(dbPath)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		assert.Equal(t, dbPath, store.Path())
	})

	t.Run("in memory", func(t *testing.T) {
		store, err := NewSQLiteStorage(":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		require.NoError(t, store.Migrate(context.Background()))
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := NewSQLiteStorage("")
		assert.ErrorIs(t, err, ErrEmptyString)
	})
}

func TestSQLiteStorage_Profiles(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	p := &model.Profile{
		ID:        "u1",
		Name:      "Ana",
		JobTitle:  "Engenheira",
		Role:      model.RoleUser,
		BirthDate: date.MustParse("1990-05-17"),
	}
	require.NoError(t, store.SaveProfile(ctx, p))

	got, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, "1990-05-17", got.BirthDate.String())
	assert.True(t, got.HireDate.IsZero())
	assert.True(t, got.Balance.IsZero(), "new profiles start with zero balance")

	require.NoError(t, store.SetBalance(ctx, "u1", money.PointsFromInt(1500)))

	// Saving the profile again must not clobber the cached balance.
	p.Name = "Ana Souza"
	p.Balance = money.PointsFromInt(99)
	require.NoError(t, store.SaveProfile(ctx, p))

	balance, err := store.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "1500", balance.String())

	got, err = store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", got.Name)

	require.NoError(t, store.SaveProfile(ctx, &model.Profile{ID: "a1", Name: "Bruno", Role: model.RoleAdmin}))
	admins, err := store.ListProfilesByRole(ctx, model.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.True(t, admins[0].IsAdmin())

	all, err := store.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = store.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, store.SetBalance(ctx, "missing", money.Points{}), common.ErrNotFound)
}

func TestSQLiteStorage_DeleteProfileWithLedger(t *testing.T) {
	store, cleanup := createTestStorageWithUsers(t, "u1", "u2")
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.CreateTransaction(ctx, newTestTransaction("u1", "2024-01-10", model.TypeCredit, 10)))

	err := store.DeleteProfile(ctx, "u1")
	assert.ErrorIs(t, err, common.ErrReferenced)

	require.NoError(t, store.DeleteProfile(ctx, "u2"))
	assert.ErrorIs(t, store.DeleteProfile(ctx, "u2"), common.ErrNotFound)
}

func TestSQLiteStorage_Transaction(t *testing.T) {
	store, cleanup := createTestStorageWithUsers(t, "u1")
	defer cleanup()
	ctx := context.Background()

	t.Run("rollback discards writes", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)

		require.NoError(t, tx.CreateTransaction(ctx, newTestTransaction("u1", "2024-01-10", model.TypeCredit, 10)))
		require.NoError(t, tx.SetBalance(ctx, "u1", money.PointsFromInt(10)))

		// Reads inside the transaction see its own writes.
		balance, err := tx.GetBalance(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "10", balance.String())

		require.NoError(t, tx.Rollback())

		txns, err := store.ListTransactions(ctx, ledgerAll)
		require.NoError(t, err)
		assert.Empty(t, txns)
		balance, err = store.GetBalance(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
	})

	t.Run("commit persists writes", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.SetBalance(ctx, "u1", money.PointsFromInt(42)))
		require.NoError(t, tx.Commit())

		balance, err := store.GetBalance(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "42", balance.String())
	})

	t.Run("management calls are refused", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()

		assert.Error(t, tx.Migrate(ctx))
		assert.Error(t, tx.Close())
		_, err = tx.BeginTx(ctx)
		assert.Error(t, err)
	})
}

func TestTranslateError(t *testing.T) {
	store, cleanup := createTestStorageWithUsers(t, "u1")
	defer cleanup()
	ctx := context.Background()

	err := store.CreateTransaction(ctx, newTestTransaction("ghost", "2024-01-10", model.TypeCredit, 10))
	assert.ErrorIs(t, err, common.ErrReferenced)

	txn := newTestTransaction("u1", "2024-01-10", model.TypeCredit, 10)
	require.NoError(t, store.CreateTransaction(ctx, txn))
	dup := *txn
	err = store.CreateTransaction(ctx, &dup)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	plain := translateError(errors.New("boom"), "do thing")
	assert.EqualError(t, plain, "failed to do thing: boom")
}
