// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"

	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/money"
)

// TransactionType is the direction of a ledger movement.
type TransactionType string

// Transaction type constants. The values are the ones persisted in the
// transactions table.
const (
	TypeCredit TransactionType = "credito"
	TypeDebit  TransactionType = "debito"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TypeCredit || t == TypeDebit
}

// ParseTransactionType accepts the persisted values and their English aliases.
func ParseTransactionType(s string) (TransactionType, error) {
	switch s {
	case string(TypeCredit), "credit":
		return TypeCredit, nil
	case string(TypeDebit), "debit":
		return TypeDebit, nil
	default:
		return "", fmt.Errorf("invalid transaction type %q", s)
	}
}

// Transaction is a single ledger entry: one credit or debit of GTXips for a user.
type Transaction struct {
	Date   date.Date
	ID     string
	UserID string
	Reason string // motivo
	Type   TransactionType
	Amount money.Points // always positive; direction comes from Type
}

// Effect returns the signed change this entry applies to its owner's balance.
func (t Transaction) Effect() money.Points {
	if t.Type == TypeCredit {
		return t.Amount
	}
	return t.Amount.Neg()
}
