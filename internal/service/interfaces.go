// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
)

// TransactionFilter defines filtering options for ledger queries.
// A zero filter selects the whole ledger.
type TransactionFilter struct {
	StartDate *date.Date
	EndDate   *date.Date
	UserID    string
	Limit     int
}

// RequestFilter selects activities or rescue requests.
type RequestFilter struct {
	UserID string
	Status model.RequestStatus
}

// RawTransactionDate is a ledger row's date exactly as stored, used to repair
// rows written in legacy formats.
type RawTransactionDate struct {
	ID   string
	Date string
}

// LedgerStore persists ledger entries.
type LedgerStore interface {
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	ListRawTransactionDates(ctx context.Context) ([]RawTransactionDate, error)
	SetTransactionDate(ctx context.Context, id string, d date.Date) error
}

// ProfileStore persists profiles and their cached balances.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	ListProfilesByRole(ctx context.Context, role model.Role) ([]model.Profile, error)
	SaveProfile(ctx context.Context, profile *model.Profile) error
	DeleteProfile(ctx context.Context, id string) error
	GetBalance(ctx context.Context, userID string) (money.Points, error)
	SetBalance(ctx context.Context, userID string, balance money.Points) error
}

// FinancialStore persists monthly financial records.
type FinancialStore interface {
	ListFinancialRecords(ctx context.Context) ([]model.FinancialRecord, error)
	GetFinancialRecord(ctx context.Context, id string) (*model.FinancialRecord, error)
	GetFinancialRecordByPeriod(ctx context.Context, p date.Period) (*model.FinancialRecord, error)
	UpsertFinancialRecord(ctx context.Context, record *model.FinancialRecord) error
	SetQuotation(ctx context.Context, id string, quotation money.Money) error
	DeleteFinancialRecord(ctx context.Context, id string) error
}

// RuleStore persists reward rules.
type RuleStore interface {
	CreateRule(ctx context.Context, rule *model.Rule) error
	GetRule(ctx context.Context, id string) (*model.Rule, error)
	ListRules(ctx context.Context) ([]model.Rule, error)
	UpdateRule(ctx context.Context, rule *model.Rule) error
	DeleteRule(ctx context.Context, id string) error
}

// RequestStore persists activity and rescue requests.
type RequestStore interface {
	CreateActivity(ctx context.Context, activity *model.Activity) error
	GetActivity(ctx context.Context, id string) (*model.Activity, error)
	ListActivities(ctx context.Context, filter RequestFilter) ([]model.Activity, error)
	SetActivityStatus(ctx context.Context, id string, status model.RequestStatus) error

	CreateRescue(ctx context.Context, rescue *model.RescueRequest) error
	GetRescue(ctx context.Context, id string) (*model.RescueRequest, error)
	ListRescues(ctx context.Context, filter RequestFilter) ([]model.RescueRequest, error)
	SetRescueStatus(ctx context.Context, id string, status model.RequestStatus) error
}

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	CreateNotifications(ctx context.Context, notifications []model.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	LedgerStore
	ProfileStore
	FinancialStore
	RuleStore
	RequestStore
	NotificationStore

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
