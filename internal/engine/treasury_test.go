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
	"github.com/gtxlabs/gtxips/internal/testutil"
)

func setupTreasury(t *testing.T) (*testutil.TestDB, *Coordinator, *Treasury) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	db.AddUser("u1", model.RoleUser)
	coord := newTestCoordinator(db.Storage, ModeAtomic, "2024-06-15")

	_, err := coord.Create(context.Background(), testutil.Credit("u1", "2024-01-10", 1000))
	require.NoError(t, err)

	return db, coord, NewTreasury(coord, testutil.ClockAt("2024-06-15"))
}

func TestTreasury_RecordCash(t *testing.T) {
	_, _, treasury := setupTreasury(t)
	ctx := context.Background()

	jan, report, err := treasury.RecordCash(ctx, date.NewPeriod(2024, time.January), money.MustMoney("50000"))
	require.NoError(t, err)
	assert.NotEmpty(t, jan.ID)
	assert.Equal(t, "1.049", jan.Quotation.String())
	assert.Equal(t, 1, report.Written)

	feb, _, err := treasury.RecordCash(ctx, date.NewPeriod(2024, time.February), money.MustMoney("60000"))
	require.NoError(t, err)
	assert.Equal(t, "1.108", feb.Quotation.String())
}

func TestTreasury_RecordCashRejectsFuturePeriod(t *testing.T) {
	db, _, treasury := setupTreasury(t)

	_, _, err := treasury.RecordCash(context.Background(), date.NewPeriod(2024, time.July), money.MustMoney("1"))
	require.ErrorIs(t, err, ErrFuturePeriod)
	assert.Empty(t, db.Quotations())
}

func TestTreasury_UpdateCashRechains(t *testing.T) {
	db, _, treasury := setupTreasury(t)
	ctx := context.Background()

	jan, _, err := treasury.RecordCash(ctx, date.NewPeriod(2024, time.January), money.MustMoney("50000"))
	require.NoError(t, err)
	_, _, err = treasury.RecordCash(ctx, date.NewPeriod(2024, time.February), money.MustMoney("60000"))
	require.NoError(t, err)

	updated, report, err := treasury.UpdateCash(ctx, jan.ID, money.MustMoney("60000"))
	require.NoError(t, err)

	assert.Equal(t, jan.ID, updated.ID)
	assert.Equal(t, "60000", updated.CashGenerated.String())
	assert.Equal(t, 2, report.Written)
	assert.Equal(t, map[string]string{
		"01/2024": "1.059",
		"02/2024": "1.1179",
	}, db.Quotations())

	_, _, err = treasury.UpdateCash(ctx, "missing", money.MustMoney("1"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTreasury_RemoveRecordChainsFromEarlierMonth(t *testing.T) {
	db, _, treasury := setupTreasury(t)
	ctx := context.Background()

	jan, _, err := treasury.RecordCash(ctx, date.NewPeriod(2024, time.January), money.MustMoney("50000"))
	require.NoError(t, err)
	_, _, err = treasury.RecordCash(ctx, date.NewPeriod(2024, time.February), money.MustMoney("60000"))
	require.NoError(t, err)

	_, err = treasury.RemoveRecord(ctx, jan.ID)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"02/2024": "1.059"}, db.Quotations())
}

func TestTreasury_PreviewDoesNotPersist(t *testing.T) {
	db, _, treasury := setupTreasury(t)
	ctx := context.Background()

	_, _, err := treasury.RecordCash(ctx, date.NewPeriod(2024, time.January), money.MustMoney("50000"))
	require.NoError(t, err)

	result, err := treasury.Preview(ctx, date.NewPeriod(2024, time.February), money.MustMoney("60000"))
	require.NoError(t, err)

	assert.Equal(t, "1049", result.Liability.String())
	assert.Equal(t, "58951", result.Surplus.String())
	assert.Equal(t, "1.108", result.Quotation.String())
	assert.Len(t, db.Quotations(), 1)
}

func TestTreasury_YearOverview(t *testing.T) {
	_, _, treasury := setupTreasury(t)
	ctx := context.Background()

	_, _, err := treasury.RecordCash(ctx, date.NewPeriod(2024, time.January), money.MustMoney("50000"))
	require.NoError(t, err)
	_, _, err = treasury.RecordCash(ctx, date.NewPeriod(2024, time.February), money.MustMoney("60000"))
	require.NoError(t, err)

	overview, err := treasury.YearOverview(ctx, 2024)
	require.NoError(t, err)

	require.Len(t, overview.Months, 12)
	assert.False(t, overview.Months[0].Pending())
	assert.Equal(t, "0.049", overview.Months[0].Variation.String())
	assert.True(t, overview.Months[2].Pending())
	assert.Equal(t, date.NewPeriod(2024, time.December), overview.Months[11].Period)

	require.NotNil(t, overview.Latest)
	assert.Equal(t, date.NewPeriod(2024, time.February), overview.Latest.Period)
	assert.Equal(t, "110000", overview.AccumulatedCash.String())
	assert.Equal(t, "5.62", overview.VariationPercent.String())

	empty, err := treasury.YearOverview(ctx, 2023)
	require.NoError(t, err)
	assert.Nil(t, empty.Latest)
	assert.True(t, empty.AccumulatedCash.IsZero())
}
