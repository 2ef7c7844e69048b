// Package storage provides the data persistence layer for the gtx application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gtxlabs/gtxips/internal/model"
)

// Validation errors.
var (
	ErrNilContext          = errors.New("context cannot be nil")
	ErrEmptyString         = errors.New("string parameter cannot be empty")
	ErrNilParameter        = errors.New("parameter cannot be nil")
	ErrInvalidDateRange    = errors.New("start date must be before end date")
	ErrInvalidStatus       = errors.New("invalid request status")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrInvalidProfile      = errors.New("invalid profile")
	ErrInvalidFinancial    = errors.New("invalid financial record")
	ErrInvalidRule         = errors.New("invalid rule")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidNotification = errors.New("invalid notification")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransaction validates a single ledger entry.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if strings.TrimSpace(txn.UserID) == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if !txn.Type.Valid() {
		return fmt.Errorf("%w: type %q", ErrInvalidTransaction, txn.Type)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	}
	return nil
}

// validateProfile validates a profile.
func validateProfile(p *model.Profile) error {
	if p == nil {
		return fmt.Errorf("%w: profile", ErrNilParameter)
	}
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidProfile)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidProfile)
	}
	if p.Role != model.RoleAdmin && p.Role != model.RoleUser {
		return fmt.Errorf("%w: role %q", ErrInvalidProfile, p.Role)
	}
	return nil
}

// validateFinancialRecord validates a monthly record.
func validateFinancialRecord(r *model.FinancialRecord) error {
	if r == nil {
		return fmt.Errorf("%w: financial record", ErrNilParameter)
	}
	if r.Period.Month < 1 || r.Period.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidFinancial, r.Period.Month)
	}
	if r.Period.Year <= 0 {
		return fmt.Errorf("%w: year %d", ErrInvalidFinancial, r.Period.Year)
	}
	if r.CashGenerated.IsNegative() {
		return fmt.Errorf("%w: cash generation cannot be negative", ErrInvalidFinancial)
	}
	return nil
}

// validateRule validates a reward rule.
func validateRule(r *model.Rule) error {
	if r == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidRule)
	}
	if !r.Value.IsPositive() {
		return fmt.Errorf("%w: value must be positive", ErrInvalidRule)
	}
	if !r.Recurrence.Valid() {
		return fmt.Errorf("%w: recurrence %q", ErrInvalidRule, r.Recurrence)
	}
	return nil
}

// validateStatus validates a request status.
func validateStatus(status model.RequestStatus) error {
	switch status {
	case model.StatusPending, model.StatusApproved, model.StatusRejected:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
}

// validateActivity validates an activity request.
func validateActivity(a *model.Activity) error {
	if a == nil {
		return fmt.Errorf("%w: activity", ErrNilParameter)
	}
	if strings.TrimSpace(a.UserID) == "" || strings.TrimSpace(a.RuleID) == "" {
		return fmt.Errorf("%w: activity needs a user and a rule", ErrInvalidRequest)
	}
	if a.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidRequest)
	}
	if !a.Value.IsPositive() {
		return fmt.Errorf("%w: value must be positive", ErrInvalidRequest)
	}
	return validateStatus(a.Status)
}

// validateRescue validates a rescue request.
func validateRescue(r *model.RescueRequest) error {
	if r == nil {
		return fmt.Errorf("%w: rescue", ErrNilParameter)
	}
	if strings.TrimSpace(r.UserID) == "" || strings.TrimSpace(r.Product) == "" {
		return fmt.Errorf("%w: rescue needs a user and a product", ErrInvalidRequest)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidRequest)
	}
	if !r.Value.IsPositive() {
		return fmt.Errorf("%w: value must be positive", ErrInvalidRequest)
	}
	return validateStatus(r.Status)
}

// validateNotification validates a notification.
func validateNotification(n *model.Notification) error {
	if strings.TrimSpace(n.UserID) == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidNotification)
	}
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidNotification)
	}
	return nil
}
