package tasks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avolkov/banksync/internal/domain"
)

// HealthStore is the slice of the relational store the connection health
// monitor needs.
type HealthStore interface {
	ListDisconnectedCandidates(ctx context.Context, notifiedBefore time.Time) ([]*domain.BankConnection, error)
	ListAbandonmentCandidates(ctx context.Context, statusChangedBefore time.Time, minNotifications int) ([]*domain.BankConnection, error)
	ListExpiringCandidates(ctx context.Context, accessedBefore, expiryNotifiedBefore time.Time) ([]*domain.BankConnection, error)
	ListExpiredCandidates(ctx context.Context, accessedBefore time.Time) ([]*domain.BankConnection, error)
	ListReconnectAlertCandidates(ctx context.Context, alertedBefore time.Time) ([]*domain.BankConnection, error)

	ListAccountsByConnection(ctx context.Context, connectionID string) ([]*domain.BankAccount, error)

	RecordDisconnectedNotified(ctx context.Context, id string, at time.Time) error
	RecordExpiryNotified(ctx context.Context, id string, at time.Time) error
	RecordReconnectAlerted(ctx context.Context, id string, at time.Time) error
	SetRequiresAttention(ctx context.Context, id, errorMessage string) error
	DisableConnection(ctx context.Context, id string) error
}

// SyncStore is the slice of the relational store the transaction sync
// engine needs.
type SyncStore interface {
	ListSyncCandidates(ctx context.Context, syncedBefore time.Time, limit int) ([]*domain.BankConnection, error)
	ListConnectionsByUser(ctx context.Context, userID string) ([]*domain.BankConnection, error)
	SetSyncStatus(ctx context.Context, id string, status domain.SyncStatus) error
	MarkSyncSucceeded(ctx context.Context, id string, at time.Time) error
	MarkSyncFailed(ctx context.Context, id, errorMessage string, flipToError bool) error

	ListAccountsByConnection(ctx context.Context, connectionID string) ([]*domain.BankAccount, error)
	UpdateAccountBalances(ctx context.Context, id string, available, current, limit decimal.Decimal, at time.Time) error
	UpdateAccountStatistics(ctx context.Context, id string, income, spending, average decimal.Decimal) error
	SetAccountStatus(ctx context.Context, id string, status domain.AccountStatus) error

	UpsertTransaction(ctx context.Context, t *domain.Transaction) (created bool, err error)
	AccountWindowTotals(ctx context.Context, accountID string, since time.Time) (income, spending decimal.Decimal, err error)
}

// InboxStore is the slice of the relational store the document ingestion
// pipeline needs.
type InboxStore interface {
	CreateInbox(ctx context.Context, in *domain.Inbox) error
	GetInbox(ctx context.Context, id string) (*domain.Inbox, error)
	SetInboxStatus(ctx context.Context, id string, status domain.InboxStatus) error
	SetInboxFailure(ctx context.Context, id string, status domain.InboxStatus, meta map[string]any) error
	ReconcileInboxExtraction(ctx context.Context, in *domain.Inbox) error
}

// Notifier is the notification dispatcher consumed by the health monitor
// and sync engine.
type Notifier interface {
	NotifyDisconnected(ctx context.Context, conn *domain.BankConnection) error
	NotifyExpiring(ctx context.Context, conn *domain.BankConnection, daysUntilExpiry int) error
	SendReconnectAlert(ctx context.Context, conn *domain.BankConnection, accountNames []string) error
	NotifyTransactionsSummary(ctx context.Context, conn *domain.BankConnection, created int) error
}
