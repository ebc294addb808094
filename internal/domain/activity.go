package domain

import (
	"time"
)

// ActivityType names the kinds of audit records the pipeline appends.
type ActivityType string

const (
	ActivityConnectionDisconnected ActivityType = "connection_disconnected"
	ActivityConnectionExpiring     ActivityType = "connection_expiring"
	ActivityReconnectAlert         ActivityType = "reconnect_alert"
	ActivityTransactionsSynced     ActivityType = "transactions_synced"
)

// UserActivity is an append-only audit record written as a side effect of
// notification and sync tasks. Rows are never mutated after creation.
type UserActivity struct {
	ID        string
	UserID    string
	Type      ActivityType
	Payload   map[string]any
	CreatedAt time.Time
}
