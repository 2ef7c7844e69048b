package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtxlabs/gtxips/internal/common"
	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
	"github.com/gtxlabs/gtxips/internal/service"
	"github.com/gtxlabs/gtxips/internal/testutil"
)

type approvalsFixture struct {
	db        *testutil.TestDB
	coord     *Coordinator
	approvals *Approvals
	rule      *model.Rule
	adminOnly *model.Rule
}

func setupApprovals(t *testing.T) *approvalsFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	db.AddUser("a1", model.RoleAdmin)
	db.AddUser("a2", model.RoleAdmin)
	db.AddUser("u1", model.RoleUser)

	ctx := context.Background()
	rule := &model.Rule{
		Category:    "Curso concluído",
		Recurrence:  model.RecurrenceAdHoc,
		Value:       money.PointsFromInt(50),
		SelfService: true,
	}
	require.NoError(t, db.Storage.CreateRule(ctx, rule))
	adminOnly := &model.Rule{
		Category:   "Tempo de casa",
		Recurrence: model.RecurrenceYearly,
		Value:      money.PointsFromInt(200),
	}
	require.NoError(t, db.Storage.CreateRule(ctx, adminOnly))

	coord := newTestCoordinator(db.Storage, ModeAtomic, "2024-06-15")
	return &approvalsFixture{
		db:        db,
		coord:     coord,
		approvals: NewApprovals(coord, testutil.ClockAt("2024-06-15")),
		rule:      rule,
		adminOnly: adminOnly,
	}
}

func (f *approvalsFixture) notifications(t *testing.T, userID string) []model.Notification {
	t.Helper()
	n, err := f.db.Storage.ListNotifications(context.Background(), userID)
	require.NoError(t, err)
	return n
}

func TestApprovals_ActivityLifecycle(t *testing.T) {
	f := setupApprovals(t)
	ctx := context.Background()

	activity, err := f.approvals.SubmitActivity(ctx, "u1", f.rule.ID, date.Date{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, activity.Status)
	assert.Equal(t, date.MustParse("2024-06-15"), activity.Date)
	assert.Equal(t, "50", activity.Value.String())

	for _, admin := range []string{"a1", "a2"} {
		n := f.notifications(t, admin)
		require.Len(t, n, 1, "admin %s", admin)
		assert.Equal(t, model.NotificationActivity, n[0].Type)
	}

	_, err = f.approvals.ApproveActivity(ctx, "u1", activity.ID)
	require.ErrorIs(t, err, common.ErrPermissionDenied)
	assert.Equal(t, "0", f.db.Balance("u1"))

	result, err := f.approvals.ApproveActivity(ctx, "a1", activity.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TypeCredit, result.Transaction.Type)
	assert.Equal(t, "Atividade aprovada: Curso concluído", result.Transaction.Reason)
	assert.Equal(t, date.MustParse("2024-06-15"), result.Transaction.Date)
	assert.Equal(t, "50", f.db.Balance("u1"))

	stored, err := f.db.Storage.GetActivity(ctx, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, stored.Status)
	assert.Len(t, f.notifications(t, "u1"), 1)

	_, err = f.approvals.ApproveActivity(ctx, "a2", activity.ID)
	require.ErrorIs(t, err, common.ErrAlreadyResolved)
	assert.Equal(t, "50", f.db.Balance("u1"))
}

func TestApprovals_RejectActivity(t *testing.T) {
	f := setupApprovals(t)
	ctx := context.Background()

	activity, err := f.approvals.SubmitActivity(ctx, "u1", f.rule.ID, date.MustParse("2024-05-02"))
	require.NoError(t, err)

	require.NoError(t, f.approvals.RejectActivity(ctx, "a2", activity.ID))

	stored, err := f.db.Storage.GetActivity(ctx, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, stored.Status)
	assert.Equal(t, "0", f.db.Balance("u1"))

	entries, err := f.db.Storage.ListTransactions(ctx, service.TransactionFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, f.approvals.RejectActivity(ctx, "a1", activity.ID), common.ErrAlreadyResolved)
}

func TestApprovals_AdminOnlyRule(t *testing.T) {
	f := setupApprovals(t)
	ctx := context.Background()

	_, err := f.approvals.SubmitActivity(ctx, "u1", f.adminOnly.ID, date.Date{})
	require.ErrorIs(t, err, ErrRuleNotSelfService)
	assert.Empty(t, f.notifications(t, "a1"))

	_, err = f.approvals.SubmitActivity(ctx, "a1", f.adminOnly.ID, date.Date{})
	require.NoError(t, err)

	_, err = f.approvals.SubmitActivity(ctx, "u1", "missing", date.Date{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestApprovals_RescueLifecycle(t *testing.T) {
	f := setupApprovals(t)
	ctx := context.Background()

	_, err := f.approvals.RequestRescue(ctx, "u1", "Fone de ouvido", "", money.PointsFromInt(10))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = f.coord.Create(ctx, testutil.Credit("u1", "2024-06-01", 100))
	require.NoError(t, err)

	rescue, err := f.approvals.RequestRescue(ctx, "u1", "Fone de ouvido", "https://example.com/fone", money.PointsFromInt(40))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, rescue.Status)
	require.Len(t, f.notifications(t, "a1"), 1)
	assert.Equal(t, model.NotificationRescue, f.notifications(t, "a1")[0].Type)

	_, err = f.approvals.ApproveRescue(ctx, "u1", rescue.ID)
	require.ErrorIs(t, err, common.ErrPermissionDenied)

	result, err := f.approvals.ApproveRescue(ctx, "a1", rescue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TypeDebit, result.Transaction.Type)
	assert.Equal(t, "-40", result.Deltas["u1"].String())
	assert.Equal(t, "60", f.db.Balance("u1"))
	assert.Equal(t, f.db.LedgerBalance("u1"), f.db.Balance("u1"))

	_, err = f.approvals.ApproveRescue(ctx, "a1", rescue.ID)
	assert.ErrorIs(t, err, common.ErrAlreadyResolved)
}

func TestApprovals_RejectRescue(t *testing.T) {
	f := setupApprovals(t)
	ctx := context.Background()

	_, err := f.coord.Create(ctx, testutil.Credit("u1", "2024-06-01", 100))
	require.NoError(t, err)

	rescue, err := f.approvals.RequestRescue(ctx, "u1", "Caneca", "", money.PointsFromInt(100))
	require.NoError(t, err)

	require.NoError(t, f.approvals.RejectRescue(ctx, "a1", rescue.ID))

	stored, err := f.db.Storage.GetRescue(ctx, rescue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, stored.Status)
	assert.Equal(t, "100", f.db.Balance("u1"))
	assert.Len(t, f.notifications(t, "u1"), 1)
}

func TestApprovals_ApprovalRecalculatesCurrentMonth(t *testing.T) {
	f := setupApprovals(t)
	f.db.AddRecord(2024, 6, "10000")
	ctx := context.Background()

	activity, err := f.approvals.SubmitActivity(ctx, "u1", f.rule.ID, date.Date{})
	require.NoError(t, err)

	result, err := f.approvals.ApproveActivity(ctx, "a1", activity.ID)
	require.NoError(t, err)

	require.NotNil(t, result.Recalc)
	assert.Equal(t, 1, result.Recalc.Written)
	// 1 + (10000 - 50) / 1e6
	assert.Equal(t, "1.01", f.db.Quotations()["06/2024"])
}
