package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
)

func setupCheckpointTest(t *testing.T) (*SQLiteStorage, *CheckpointManager) {
	t.Helper()
	store, cleanup := createTestStorageWithUsers(t, "u1", "u2")
	t.Cleanup(cleanup)
	ctx := context.Background()

	require.NoError(t, store.CreateTransaction(ctx, newTestTransaction("u1", "2024-01-10", model.TypeCredit, 1000)))
	require.NoError(t, store.UpsertFinancialRecord(ctx, &model.FinancialRecord{
		Period:        date.NewPeriod(2024, time.January),
		CashGenerated: money.MoneyFromInt(50000),
	}))

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)
	return store, cm
}

func TestCheckpointManager_Create(t *testing.T) {
	_, cm := setupCheckpointTest(t)
	ctx := context.Background()

	info, err := cm.Create(ctx, "before-import", "Before importing 2023 ledger")
	require.NoError(t, err)
	assert.Equal(t, "before-import", info.ID)
	assert.Equal(t, 2, info.Profiles)
	assert.Equal(t, 1, info.Transactions)
	assert.Equal(t, 1, info.FinancialRecords)
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
	assert.False(t, info.IsAuto)
	assert.Positive(t, info.FileSize)

	assert.FileExists(t, filepath.Join(cm.checkpointsDir, "before-import.db"))
	assert.FileExists(t, filepath.Join(cm.checkpointsDir, "before-import.meta.json"))

	_, err = cm.Create(ctx, "before-import", "")
	assert.ErrorIs(t, err, ErrCheckpointExists)

	for _, bad := range []string{"../escape", "a/b", `a\b`} {
		_, err = cm.Create(ctx, bad, "")
		assert.ErrorIs(t, err, ErrInvalidCheckpointID, bad)
	}

	generated, err := cm.Create(ctx, "", "")
	require.NoError(t, err)
	assert.Contains(t, generated.ID, "checkpoint-")
}

func TestCheckpointManager_ListAndInfo(t *testing.T) {
	_, cm := setupCheckpointTest(t)
	ctx := context.Background()

	_, err := cm.Create(ctx, "first", "")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = cm.Create(ctx, "second", "")
	require.NoError(t, err)

	// Stray files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(cm.checkpointsDir, "junk.meta.json"), []byte("{"), 0600))

	list, err := cm.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].ID)

	info, err := cm.GetCheckpointInfo(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Transactions)

	_, err = cm.GetCheckpointInfo(ctx, "missing")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestCheckpointManager_Restore(t *testing.T) {
	store, cm := setupCheckpointTest(t)
	ctx := context.Background()

	_, err := cm.Create(ctx, "baseline", "")
	require.NoError(t, err)

	require.NoError(t, store.CreateTransaction(ctx, newTestTransaction("u2", "2024-01-11", model.TypeCredit, 5)))

	require.NoError(t, cm.Restore(ctx, "baseline"))

	reopened, err := NewSQLiteStorage(store.Path())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	txns, err := reopened.ListTransactions(ctx, ledgerAll)
	require.NoError(t, err)
	assert.Len(t, txns, 1, "writes after the checkpoint are gone")

	assert.ErrorIs(t, cm.Restore(ctx, "missing"), ErrCheckpointNotFound)
}

func TestCheckpointManager_Delete(t *testing.T) {
	_, cm := setupCheckpointTest(t)
	ctx := context.Background()

	_, err := cm.Create(ctx, "doomed", "")
	require.NoError(t, err)
	require.NoError(t, cm.Delete(ctx, "doomed"))

	assert.NoFileExists(t, filepath.Join(cm.checkpointsDir, "doomed.db"))
	assert.NoFileExists(t, filepath.Join(cm.checkpointsDir, "doomed.meta.json"))
	assert.ErrorIs(t, cm.Delete(ctx, "doomed"), ErrCheckpointNotFound)

	var count int
	require.NoError(t, cm.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM checkpoint_metadata").Scan(&count))
	assert.Zero(t, count)
}

func TestCheckpointManager_AutoCheckpointPrunes(t *testing.T) {
	_, cm := setupCheckpointTest(t)
	cm.keepAuto = 2
	ctx := context.Background()

	_, err := cm.Create(ctx, "manual", "")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		info, err := cm.create(ctx, "auto-"+string(rune('a'+i)), "auto", true)
		require.NoError(t, err)
		assert.True(t, info.IsAuto)
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, cm.pruneAuto(ctx))

	list, err := cm.List(ctx)
	require.NoError(t, err)
	ids := make([]string, len(list))
	for i, cp := range list {
		ids[i] = cp.ID
	}
	assert.ElementsMatch(t, []string{"manual", "auto-c", "auto-d"}, ids)

	info, err := cm.AutoCheckpoint(ctx, "resync")
	require.NoError(t, err)
	assert.True(t, info.IsAuto)
	assert.Contains(t, info.ID, "auto-resync-")
}

func TestCheckpointManager_IntegrityCheck(t *testing.T) {
	_, cm := setupCheckpointTest(t)
	ctx := context.Background()

	_, err := cm.Create(ctx, "broken", "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cm.checkpointsDir, "broken.db"), []byte("not a database"), 0600))

	assert.ErrorIs(t, cm.Restore(ctx, "broken"), ErrCheckpointCorrupted)
}

func TestNewCheckpointManager_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = store.NewCheckpointManager()
	assert.ErrorIs(t, err, ErrInMemoryDatabase)
}
