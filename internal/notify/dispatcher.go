package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/avolkov/banksync/internal/domain"
)

// ActivityStore appends audit records. Implemented by the relational store.
type ActivityStore interface {
	InsertActivity(ctx context.Context, activity *domain.UserActivity) error
}

// Dispatcher emits one outbound event per notification and appends one
// UserActivity audit row. Callers await completion, so a delivery failure
// surfaces as the calling sub-task's failure.
type Dispatcher struct {
	sender     EventSender
	activities ActivityStore
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(sender EventSender, activities ActivityStore) *Dispatcher {
	return &Dispatcher{sender: sender, activities: activities}
}

// NotifyDisconnected tells the user a bank connection has stopped working.
func (d *Dispatcher) NotifyDisconnected(ctx context.Context, conn *domain.BankConnection) error {
	event := Event{
		Name: EventDisconnected,
		Payload: map[string]any{
			"email":            conn.UserEmail,
			"institution_name": conn.InstitutionName,
			"connection_id":    conn.ID,
		},
	}
	return d.dispatch(ctx, event, conn.UserID, domain.ActivityConnectionDisconnected, map[string]any{
		"connection_id": conn.ID,
	})
}

// NotifyExpiring warns the user the connection's access is about to lapse.
func (d *Dispatcher) NotifyExpiring(ctx context.Context, conn *domain.BankConnection, daysUntilExpiry int) error {
	event := Event{
		Name: EventExpiring,
		Payload: map[string]any{
			"email":             conn.UserEmail,
			"institution_name":  conn.InstitutionName,
			"connection_id":     conn.ID,
			"days_until_expiry": daysUntilExpiry,
		},
	}
	return d.dispatch(ctx, event, conn.UserID, domain.ActivityConnectionExpiring, map[string]any{
		"connection_id":     conn.ID,
		"days_until_expiry": daysUntilExpiry,
	})
}

// SendReconnectAlert emails a dedicated "please reconnect" message with
// templated HTML and text bodies.
func (d *Dispatcher) SendReconnectAlert(ctx context.Context, conn *domain.BankConnection, accountNames []string) error {
	html, text, err := renderReconnectBodies(conn.InstitutionName, accountNames)
	if err != nil {
		return err
	}

	event := Event{
		Name: EventReconnectAlert,
		Payload: map[string]any{
			"email":   conn.UserEmail,
			"subject": fmt.Sprintf("Reconnect %s to keep your transactions up to date", conn.InstitutionName),
			"html":    html,
			"text":    text,
		},
	}
	return d.dispatch(ctx, event, conn.UserID, domain.ActivityReconnectAlert, map[string]any{
		"connection_id": conn.ID,
	})
}

// NotifyTransactionsSummary reports newly synced transactions.
func (d *Dispatcher) NotifyTransactionsSummary(ctx context.Context, conn *domain.BankConnection, created int) error {
	event := Event{
		Name: EventTransactionsSummary,
		Payload: map[string]any{
			"email":            conn.UserEmail,
			"institution_name": conn.InstitutionName,
			"connection_id":    conn.ID,
			"created":          created,
		},
	}
	return d.dispatch(ctx, event, conn.UserID, domain.ActivityTransactionsSynced, map[string]any{
		"connection_id": conn.ID,
		"created":       created,
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, event Event, userID string, activityType domain.ActivityType, payload map[string]any) error {
	if err := d.sender.Send(ctx, event); err != nil {
		return err
	}

	activity := &domain.UserActivity{
		UserID:    userID,
		Type:      activityType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if err := d.activities.InsertActivity(ctx, activity); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}
