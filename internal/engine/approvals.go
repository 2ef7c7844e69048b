package engine

import (
	"context"
	"fmt"

	"github.com/gtxlabs/gtxips/internal/common"
	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
	"github.com/gtxlabs/gtxips/internal/service"
)

// Approvals runs the activity and rescue workflows. Approving a request is a
// ledger mutation and goes through the Coordinator, so the status change,
// the ledger entry, the balance and the quotation sweep commit together.
type Approvals struct {
	coord *Coordinator
	clock Clock
}

// NewApprovals creates the approval workflows on top of coord.
func NewApprovals(coord *Coordinator, clock Clock) *Approvals {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Approvals{coord: coord, clock: clock}
}

// SubmitActivity files a pending activity under a rule and alerts every
// admin. Only admins may submit under rules that are not self-service.
func (a *Approvals) SubmitActivity(ctx context.Context, userID, ruleID string, day date.Date) (*model.Activity, error) {
	if day.IsZero() {
		day = a.clock.Today()
	}

	var activity *model.Activity
	_, err := a.coord.run(ctx, "submit activity", func(ctx context.Context, store service.Storage) (*mutation, error) {
		requester, err := store.GetProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		rule, err := store.GetRule(ctx, ruleID)
		if err != nil {
			return nil, err
		}
		if !rule.SelfService && !requester.IsAdmin() {
			return nil, fmt.Errorf("rule %s: %w", rule.Category, ErrRuleNotSelfService)
		}

		activity = &model.Activity{
			UserID:   userID,
			RuleID:   rule.ID,
			Category: rule.Category,
			Date:     day,
			Value:    rule.Value,
			Status:   model.StatusPending,
		}
		if err := store.CreateActivity(ctx, activity); err != nil {
			return nil, err
		}
		return &mutation{}, notifyAdmins(ctx, store, model.Notification{
			Title:   "Nova atividade pendente",
			Message: fmt.Sprintf("%s enviou %q (%s GTXips)", requester.Name, rule.Category, rule.Value),
			Type:    model.NotificationActivity,
		})
	})
	if err != nil {
		return nil, err
	}
	return activity, nil
}

// ApproveActivity credits the activity's value to its requester.
func (a *Approvals) ApproveActivity(ctx context.Context, reviewerID, activityID string) (*MutationResult, error) {
	return a.coord.run(ctx, "approve activity", func(ctx context.Context, store service.Storage) (*mutation, error) {
		if err := requireAdmin(ctx, store, reviewerID); err != nil {
			return nil, err
		}
		activity, err := store.GetActivity(ctx, activityID)
		if err != nil {
			return nil, err
		}
		if activity.Status != model.StatusPending {
			return nil, fmt.Errorf("activity %s is %s: %w", activity.ID, activity.Status, common.ErrAlreadyResolved)
		}
		if err := store.SetActivityStatus(ctx, activity.ID, model.StatusApproved); err != nil {
			return nil, err
		}

		txn := &model.Transaction{
			UserID: activity.UserID,
			Date:   a.clock.Today(),
			Reason: "Atividade aprovada: " + activity.Category,
			Type:   model.TypeCredit,
			Amount: activity.Value,
		}
		m, err := ledgerEntry(ctx, store, txn)
		if err != nil {
			return nil, err
		}
		return m, notifyUser(ctx, store, activity.UserID, model.Notification{
			Title:   "Atividade aprovada",
			Message: fmt.Sprintf("%q foi aprovada: %s GTXips creditados", activity.Category, activity.Value),
			Type:    model.NotificationActivity,
		})
	})
}

// RejectActivity closes the activity without touching the ledger.
func (a *Approvals) RejectActivity(ctx context.Context, reviewerID, activityID string) error {
	_, err := a.coord.run(ctx, "reject activity", func(ctx context.Context, store service.Storage) (*mutation, error) {
		if err := requireAdmin(ctx, store, reviewerID); err != nil {
			return nil, err
		}
		activity, err := store.GetActivity(ctx, activityID)
		if err != nil {
			return nil, err
		}
		if activity.Status != model.StatusPending {
			return nil, fmt.Errorf("activity %s is %s: %w", activity.ID, activity.Status, common.ErrAlreadyResolved)
		}
		if err := store.SetActivityStatus(ctx, activity.ID, model.StatusRejected); err != nil {
			return nil, err
		}
		return &mutation{}, notifyUser(ctx, store, activity.UserID, model.Notification{
			Title:   "Atividade rejeitada",
			Message: fmt.Sprintf("%q não foi aprovada", activity.Category),
			Type:    model.NotificationActivity,
		})
	})
	return err
}

// RequestRescue files a pending rescue and alerts every admin. The requester
// must hold at least value points when asking.
func (a *Approvals) RequestRescue(ctx context.Context, userID, product, link string, value money.Points) (*model.RescueRequest, error) {
	var rescue *model.RescueRequest
	_, err := a.coord.run(ctx, "request rescue", func(ctx context.Context, store service.Storage) (*mutation, error) {
		requester, err := store.GetProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		if requester.Balance.Sub(value).IsNegative() {
			return nil, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientBalance, requester.Balance, value)
		}

		rescue = &model.RescueRequest{
			UserID:        userID,
			Product:       product,
			SuggestedLink: link,
			Date:          a.clock.Today(),
			Value:         value,
			Status:        model.StatusPending,
		}
		if err := store.CreateRescue(ctx, rescue); err != nil {
			return nil, err
		}
		return &mutation{}, notifyAdmins(ctx, store, model.Notification{
			Title:   "Novo pedido de resgate",
			Message: fmt.Sprintf("%s pediu %q (%s GTXips)", requester.Name, product, value),
			Type:    model.NotificationRescue,
		})
	})
	if err != nil {
		return nil, err
	}
	return rescue, nil
}

// ApproveRescue debits the rescue's value from its requester.
func (a *Approvals) ApproveRescue(ctx context.Context, reviewerID, rescueID string) (*MutationResult, error) {
	return a.coord.run(ctx, "approve rescue", func(ctx context.Context, store service.Storage) (*mutation, error) {
		if err := requireAdmin(ctx, store, reviewerID); err != nil {
			return nil, err
		}
		rescue, err := store.GetRescue(ctx, rescueID)
		if err != nil {
			return nil, err
		}
		if rescue.Status != model.StatusPending {
			return nil, fmt.Errorf("rescue %s is %s: %w", rescue.ID, rescue.Status, common.ErrAlreadyResolved)
		}
		if err := store.SetRescueStatus(ctx, rescue.ID, model.StatusApproved); err != nil {
			return nil, err
		}

		txn := &model.Transaction{
			UserID: rescue.UserID,
			Date:   a.clock.Today(),
			Reason: "Resgate aprovado: " + rescue.Product,
			Type:   model.TypeDebit,
			Amount: rescue.Value,
		}
		m, err := ledgerEntry(ctx, store, txn)
		if err != nil {
			return nil, err
		}
		return m, notifyUser(ctx, store, rescue.UserID, model.Notification{
			Title:   "Resgate aprovado",
			Message: fmt.Sprintf("%q foi aprovado: %s GTXips debitados", rescue.Product, rescue.Value),
			Type:    model.NotificationRescue,
		})
	})
}

// RejectRescue closes the rescue without touching the ledger.
func (a *Approvals) RejectRescue(ctx context.Context, reviewerID, rescueID string) error {
	_, err := a.coord.run(ctx, "reject rescue", func(ctx context.Context, store service.Storage) (*mutation, error) {
		if err := requireAdmin(ctx, store, reviewerID); err != nil {
			return nil, err
		}
		rescue, err := store.GetRescue(ctx, rescueID)
		if err != nil {
			return nil, err
		}
		if rescue.Status != model.StatusPending {
			return nil, fmt.Errorf("rescue %s is %s: %w", rescue.ID, rescue.Status, common.ErrAlreadyResolved)
		}
		if err := store.SetRescueStatus(ctx, rescue.ID, model.StatusRejected); err != nil {
			return nil, err
		}
		return &mutation{}, notifyUser(ctx, store, rescue.UserID, model.Notification{
			Title:   "Resgate rejeitado",
			Message: fmt.Sprintf("%q não foi aprovado", rescue.Product),
			Type:    model.NotificationRescue,
		})
	})
	return err
}

// ledgerEntry persists txn and returns the mutation it causes.
func ledgerEntry(ctx context.Context, store service.Storage, txn *model.Transaction) (*mutation, error) {
	if err := store.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	m := &mutation{txn: *txn, anchor: txn.Date}
	m.add(txn.UserID, txn.Effect())
	return m, nil
}

func requireAdmin(ctx context.Context, store service.Storage, reviewerID string) error {
	reviewer, err := store.GetProfile(ctx, reviewerID)
	if err != nil {
		return fmt.Errorf("reviewer: %w", err)
	}
	if !reviewer.IsAdmin() {
		return fmt.Errorf("%s cannot review requests: %w", reviewer.Name, common.ErrPermissionDenied)
	}
	return nil
}

func notifyAdmins(ctx context.Context, store service.Storage, n model.Notification) error {
	admins, err := store.ListProfilesByRole(ctx, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to list admins: %w", err)
	}
	batch := make([]model.Notification, 0, len(admins))
	for _, admin := range admins {
		n.UserID = admin.ID
		batch = append(batch, n)
	}
	if len(batch) == 0 {
		return nil
	}
	return store.CreateNotifications(ctx, batch)
}

func notifyUser(ctx context.Context, store service.Storage, userID string, n model.Notification) error {
	n.UserID = userID
	return store.CreateNotifications(ctx, []model.Notification{n})
}
