package model

import (
	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/money"
)

// Role controls which views and operations a user has access to.
type Role string

// Role constants.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Profile is an employee account. Balance is a cached value derived from the
// ledger; it must equal the sum of the user's credits minus debits.
type Profile struct {
	BirthDate date.Date
	HireDate  date.Date
	ID        string
	Name      string
	JobTitle  string // cargo
	PhotoURL  string
	Role      Role
	Balance   money.Points
}

// IsAdmin reports whether the profile has the admin role.
func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }
