package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle status of a bank account.
// PENDING is only held transiently while a sync is in flight.
type AccountStatus string

const (
	AccountActive       AccountStatus = "ACTIVE"
	AccountPending      AccountStatus = "PENDING"
	AccountInactive     AccountStatus = "INACTIVE"
	AccountDisconnected AccountStatus = "DISCONNECTED"
)

// BankAccount belongs to exactly one BankConnection and one user.
type BankAccount struct {
	ID           string
	ConnectionID string
	UserID       string

	// ExternalID is the upstream provider's account identifier, used to
	// match local rows against fetched balances.
	ExternalID string

	Name     string
	Currency string
	Enabled  bool
	Status   AccountStatus

	AvailableBalance decimal.Decimal
	CurrentBalance   decimal.Decimal
	Limit            decimal.Decimal

	BalanceLastUpdated *time.Time

	// Derived statistics, recomputed on every sync cycle over a trailing
	// 30-day window. AverageBalance is a snapshot of CurrentBalance, not a
	// time-weighted average.
	MonthlyIncome   decimal.Decimal
	MonthlySpending decimal.Decimal
	AverageBalance  decimal.Decimal
}
