package model

import "github.com/gtxlabs/gtxips/internal/money"

// Recurrence describes how often a rule may be rewarded.
type Recurrence string

// Recurrence constants.
const (
	RecurrenceYearly  Recurrence = "Anual"
	RecurrenceMonthly Recurrence = "Mensal"
	RecurrenceOnce    Recurrence = "Única"
	RecurrenceAdHoc   Recurrence = "Ad-hoc"
)

// Valid reports whether r is a known recurrence.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceYearly, RecurrenceMonthly, RecurrenceOnce, RecurrenceAdHoc:
		return true
	}
	return false
}

// Rule is a reward template. SelfService rules can be claimed by employees
// through an activity request.
type Rule struct {
	ID          string
	Category    string
	Description string
	Recurrence  Recurrence
	Value       money.Points
	SelfService bool
}
