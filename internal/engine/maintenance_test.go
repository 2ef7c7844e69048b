package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtxlabs/gtxips/internal/common"
	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
	"github.com/gtxlabs/gtxips/internal/service"
	"github.com/gtxlabs/gtxips/internal/testutil"
)

func TestCoordinator_Resync(t *testing.T) {
	db := seedQuarter(t)
	coord := newTestCoordinator(db.Storage, ModeAtomic, "2024-06-15")
	ctx := context.Background()

	_, err := coord.Create(ctx, testutil.Credit("u1", "2024-01-10", 100))
	require.NoError(t, err)
	require.NoError(t, db.Storage.SetBalance(ctx, "u1", money.PointsFromInt(999)))
	require.NoError(t, db.Storage.SetBalance(ctx, "u2", money.PointsFromInt(5)))

	var calls [][2]int
	report, err := coord.Resync(ctx, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Profiles)
	require.Len(t, report.Drift, 2)
	assert.Equal(t, "u1", report.Drift[0].UserID)
	assert.Equal(t, "999", report.Drift[0].Cached.String())
	assert.Equal(t, "100", report.Drift[0].Ledger.String())
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)

	assert.Equal(t, "100", db.Balance("u1"))
	assert.Equal(t, "0", db.Balance("u2"))

	again, err := coord.Resync(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, again.Drift)
}

func TestCoordinator_RecalculateBalance(t *testing.T) {
	db := seedQuarter(t)
	coord := newTestCoordinator(db.Storage, ModeAtomic, "2024-06-15")
	ctx := context.Background()

	_, err := coord.Create(ctx, testutil.Credit("u1", "2024-01-10", 100))
	require.NoError(t, err)
	_, err = coord.Create(ctx, testutil.Debit("u1", "2024-02-10", 30))
	require.NoError(t, err)
	require.NoError(t, db.Storage.SetBalance(ctx, "u1", money.PointsFromInt(7)))

	balance, err := coord.RecalculateBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "70", balance.String())
	assert.Equal(t, "70", db.Balance("u1"))

	_, err = coord.RecalculateBalance(ctx, "nobody")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCoordinator_FixDates(t *testing.T) {
	for _, mode := range []RecalcMode{ModeAtomic, ModeBestEffort} {
		t.Run(string(mode), func(t *testing.T) {
			db := testutil.SetupFileTestDB(t)
			db.AddUser("u1", model.RoleUser)
			db.AddRecord(2024, time.January, "50000")
			db.ExecRaw(`INSERT INTO transactions (id, user_id, data, motivo, valor, tipo) VALUES
				('t1', 'u1', '10/01/2024', '', '1000', 'credito'),
				('t2', 'u1', '2024 02 02', '', '5', 'debito'),
				('t3', 'u1', '2024-03-01', '', '1', 'credito')`)

			coord := newTestCoordinator(db.Storage, mode, "2024-06-15")
			ctx := context.Background()

			report, err := coord.FixDates(ctx)
			require.NoError(t, err)

			assert.Equal(t, 3, report.Scanned)
			assert.Equal(t, 2, report.Repaired)
			assert.Empty(t, report.Invalid)
			require.NotNil(t, report.Resync)
			assert.Len(t, report.Resync.Drift, 1)
			require.NotNil(t, report.Recalc)
			assert.Equal(t, date.NewPeriod(2024, time.January), report.Recalc.From)

			raw, err := db.Storage.ListRawTransactionDates(ctx)
			require.NoError(t, err)
			assert.Equal(t, []service.RawTransactionDate{
				{ID: "t1", Date: "2024-01-10"},
				{ID: "t2", Date: "2024-02-02"},
				{ID: "t3", Date: "2024-03-01"},
			}, raw)
			assert.Equal(t, "996", db.Balance("u1"))
			assert.Equal(t, "1.049", db.Quotations()["01/2024"])

			again, err := coord.FixDates(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, again.Repaired)
		})
	}
}

func TestCoordinator_FixDatesLeavesInvalidRows(t *testing.T) {
	db := testutil.SetupFileTestDB(t)
	db.AddUser("u1", model.RoleUser)
	db.ExecRaw(`INSERT INTO transactions (id, user_id, data, motivo, valor, tipo) VALUES
		('t1', 'u1', '15/03/2024', '', '10', 'credito'),
		('t9', 'u1', 'ontem', '', '10', 'credito')`)

	coord := newTestCoordinator(db.Storage, ModeAtomic, "2024-06-15")
	ctx := context.Background()

	report, err := coord.FixDates(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Repaired)
	assert.Equal(t, []string{"t9"}, report.Invalid)
	assert.Nil(t, report.Resync)
	assert.Nil(t, report.Recalc)

	raw, err := db.Storage.ListRawTransactionDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []service.RawTransactionDate{
		{ID: "t1", Date: "2024-03-15"},
		{ID: "t9", Date: "ontem"},
	}, raw)
}
