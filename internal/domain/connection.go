package domain

import (
	"time"
)

// ConnectionStatus is the lifecycle status of a bank connection.
type ConnectionStatus string

const (
	ConnectionActive            ConnectionStatus = "ACTIVE"
	ConnectionError             ConnectionStatus = "ERROR"
	ConnectionLoginRequired     ConnectionStatus = "LOGIN_REQUIRED"
	ConnectionRequiresAttention ConnectionStatus = "REQUIRES_ATTENTION"
	ConnectionDisconnected      ConnectionStatus = "DISCONNECTED"
	ConnectionPending           ConnectionStatus = "PENDING"
	ConnectionRequiresReauth    ConnectionStatus = "REQUIRES_REAUTH"
)

// SyncStatus tracks the sync state machine of a connection.
// Transitions: IDLE/SCHEDULED -> SYNCING -> IDLE on success, FAILED on error.
type SyncStatus string

const (
	SyncIdle      SyncStatus = "IDLE"
	SyncSyncing   SyncStatus = "SYNCING"
	SyncFailed    SyncStatus = "FAILED"
	SyncScheduled SyncStatus = "SCHEDULED"
)

// BankConnection represents one link to an external financial institution.
// It holds the upstream credential and the bookkeeping timestamps the health
// monitor and sync engine drive their policies from.
type BankConnection struct {
	ID              string
	UserID          string
	UserEmail       string
	InstitutionName string

	Status     ConnectionStatus
	SyncStatus SyncStatus

	// AccessToken is the opaque credential for upstream provider calls.
	AccessToken string

	LastSyncedAt   *time.Time
	LastAccessedAt *time.Time

	// Disconnected-scan bookkeeping.
	LastNotifiedAt    *time.Time
	NotificationCount int

	// Expiring-scan bookkeeping.
	LastExpiryNotifiedAt    *time.Time
	ExpiryNotificationCount int

	// Reconnect-alert bookkeeping.
	LastAlertedAt *time.Time
	AlertCount    int

	LastStatusChangedAt *time.Time
	ErrorMessage        string
	Disabled            bool
}

// ErrorLike reports whether the connection is in a status that the
// disconnected scan and abandonment sweep treat as broken.
func (c *BankConnection) ErrorLike() bool {
	switch c.Status {
	case ConnectionError, ConnectionLoginRequired, ConnectionRequiresAttention:
		return true
	}
	return false
}
