package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/avolkov/banksync/internal/domain"
	"github.com/avolkov/banksync/internal/logger"
)

// Health-policy constants. Access tokens are assumed to expire after 30 days
// of inactivity.
const (
	disconnectedNotifySpacing   = 3 * 24 * time.Hour
	abandonmentAge              = 30 * 24 * time.Hour
	abandonmentMinNotifications = 5
	expiringInactivity          = 20 * 24 * time.Hour
	expiryNotifySpacing         = 7 * 24 * time.Hour
	tokenExpiryDays             = 30
	reconnectAlertSpacing       = 3 * 24 * time.Hour
)

// ScanResult is the aggregate outcome of one health scan.
type ScanResult struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// HealthMonitor classifies bank connections by staleness and drives the
// notification and disablement policy. Each scan processes a bounded
// candidate set with per-candidate failure isolation.
type HealthMonitor struct {
	store      HealthStore
	dispatcher Notifier
	now        func() time.Time
}

// NewHealthMonitor creates a health monitor. now may be nil, in which case
// time.Now is used.
func NewHealthMonitor(store HealthStore, dispatcher Notifier, now func() time.Time) *HealthMonitor {
	if now == nil {
		now = time.Now
	}
	return &HealthMonitor{store: store, dispatcher: dispatcher, now: now}
}

// RunDisconnectedScan notifies users of broken connections that have not
// been notified in the last three days. Connections without a user email or
// without any enabled account are skipped silently.
func (m *HealthMonitor) RunDisconnectedScan(ctx context.Context) (*ScanResult, error) {
	defer observeDuration("disconnected_scan")()
	now := m.now()

	candidates, err := m.store.ListDisconnectedCandidates(ctx, now.Add(-disconnectedNotifySpacing))
	if err != nil {
		return nil, fmt.Errorf("disconnected scan: %w", err)
	}

	result := CollectEach(ctx, candidates, describeConnection, func(ctx context.Context, conn *domain.BankConnection) error {
		// The connection may have recovered between the candidate query and
		// this point; only still-broken ones get notified.
		if !conn.ErrorLike() {
			return ErrSkip
		}
		if conn.UserEmail == "" {
			return ErrSkip
		}
		enabled, err := m.enabledAccounts(ctx, conn.ID)
		if err != nil {
			return err
		}
		if len(enabled) == 0 {
			return ErrSkip
		}

		if err := m.dispatcher.NotifyDisconnected(ctx, conn); err != nil {
			return err
		}
		return m.store.RecordDisconnectedNotified(ctx, conn.ID, now)
	})

	observeBatch("disconnected_scan", result)
	return scanResult(result), nil
}

// RunAbandonmentSweep permanently disables connections that have stayed
// broken for thirty days after at least five notifications. This is a
// terminal, one-way transition: nothing re-enables a connection.
func (m *HealthMonitor) RunAbandonmentSweep(ctx context.Context) (*ScanResult, error) {
	defer observeDuration("abandonment_sweep")()
	now := m.now()

	candidates, err := m.store.ListAbandonmentCandidates(ctx, now.Add(-abandonmentAge), abandonmentMinNotifications)
	if err != nil {
		return nil, fmt.Errorf("abandonment sweep: %w", err)
	}

	log := logger.FromContext(ctx)
	result := CollectEach(ctx, candidates, describeConnection, func(ctx context.Context, conn *domain.BankConnection) error {
		if err := m.store.DisableConnection(ctx, conn.ID); err != nil {
			return err
		}
		log.Info().Str("connection_id", conn.ID).Msg("connection abandoned and disabled")
		return nil
	})

	observeBatch("abandonment_sweep", result)
	return scanResult(result), nil
}

// RunExpiringScan warns users whose access tokens are approaching the
// 30-day inactivity expiry.
func (m *HealthMonitor) RunExpiringScan(ctx context.Context) (*ScanResult, error) {
	defer observeDuration("expiring_scan")()
	now := m.now()

	candidates, err := m.store.ListExpiringCandidates(ctx,
		now.Add(-expiringInactivity), now.Add(-expiryNotifySpacing))
	if err != nil {
		return nil, fmt.Errorf("expiring scan: %w", err)
	}

	result := CollectEach(ctx, candidates, describeConnection, func(ctx context.Context, conn *domain.BankConnection) error {
		if conn.LastAccessedAt == nil || conn.UserEmail == "" {
			return ErrSkip
		}

		daysInactive := int(now.Sub(*conn.LastAccessedAt).Hours() / 24)
		daysUntilExpiry := tokenExpiryDays - daysInactive
		if daysUntilExpiry < 0 {
			daysUntilExpiry = 0
		}

		if err := m.dispatcher.NotifyExpiring(ctx, conn, daysUntilExpiry); err != nil {
			return err
		}
		return m.store.RecordExpiryNotified(ctx, conn.ID, now)
	})

	observeBatch("expiring_scan", result)
	return scanResult(result), nil
}

// RunExpiryFinalization flips fully expired connections to
// REQUIRES_ATTENTION so the next disconnected scan picks them up. No
// notification is sent here.
func (m *HealthMonitor) RunExpiryFinalization(ctx context.Context) (*ScanResult, error) {
	defer observeDuration("expiry_finalization")()
	now := m.now()

	candidates, err := m.store.ListExpiredCandidates(ctx, now.AddDate(0, 0, -tokenExpiryDays))
	if err != nil {
		return nil, fmt.Errorf("expiry finalization: %w", err)
	}

	result := CollectEach(ctx, candidates, describeConnection, func(ctx context.Context, conn *domain.BankConnection) error {
		msg := fmt.Sprintf("access token expired after %d days of inactivity", tokenExpiryDays)
		return m.store.SetRequiresAttention(ctx, conn.ID, msg)
	})

	observeBatch("expiry_finalization", result)
	return scanResult(result), nil
}

// RunReconnectAlertScan sends the dedicated "please reconnect" email to
// users of LOGIN_REQUIRED connections not alerted in the last three days.
func (m *HealthMonitor) RunReconnectAlertScan(ctx context.Context) (*ScanResult, error) {
	defer observeDuration("reconnect_alert_scan")()
	now := m.now()

	candidates, err := m.store.ListReconnectAlertCandidates(ctx, now.Add(-reconnectAlertSpacing))
	if err != nil {
		return nil, fmt.Errorf("reconnect alert scan: %w", err)
	}

	result := CollectEach(ctx, candidates, describeConnection, func(ctx context.Context, conn *domain.BankConnection) error {
		if conn.UserEmail == "" {
			return ErrSkip
		}
		enabled, err := m.enabledAccounts(ctx, conn.ID)
		if err != nil {
			return err
		}
		if len(enabled) == 0 {
			return ErrSkip
		}

		names := make([]string, 0, len(enabled))
		for _, acct := range enabled {
			names = append(names, acct.Name)
		}

		if err := m.dispatcher.SendReconnectAlert(ctx, conn, names); err != nil {
			return err
		}
		return m.store.RecordReconnectAlerted(ctx, conn.ID, now)
	})

	observeBatch("reconnect_alert_scan", result)
	return scanResult(result), nil
}

func (m *HealthMonitor) enabledAccounts(ctx context.Context, connectionID string) ([]*domain.BankAccount, error) {
	accounts, err := m.store.ListAccountsByConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	var enabled []*domain.BankAccount
	for _, acct := range accounts {
		if acct.Enabled {
			enabled = append(enabled, acct)
		}
	}
	return enabled, nil
}

func describeConnection(conn *domain.BankConnection) string {
	return conn.ID
}

func scanResult[T any](r BatchResult[T]) *ScanResult {
	return &ScanResult{
		Total:     r.Total(),
		Processed: r.Succeeded,
		Skipped:   r.Skipped,
		Failed:    len(r.Failed),
	}
}

func observeDuration(task string) func() {
	start := time.Now()
	return func() {
		taskDuration.WithLabelValues(task).Observe(time.Since(start).Seconds())
	}
}
