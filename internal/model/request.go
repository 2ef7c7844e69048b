package model

import (
	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/money"
)

// RequestStatus is the approval state of an activity or rescue request.
type RequestStatus string

// Request status constants.
const (
	StatusPending  RequestStatus = "pendente"
	StatusApproved RequestStatus = "aprovado"
	StatusRejected RequestStatus = "rejeitado"
)

// Activity is an employee's claim for points under a rule. Approval credits
// Value to the user.
type Activity struct {
	Date     date.Date
	ID       string
	UserID   string
	RuleID   string
	Category string
	Status   RequestStatus
	Value    money.Points
}

// RescueRequest is an employee's request to redeem points for a product.
// Approval debits Value from the user.
type RescueRequest struct {
	Date          date.Date
	ID            string
	UserID        string
	Product       string
	SuggestedLink string
	Feedback      string
	Status        RequestStatus
	Value         money.Points
}
