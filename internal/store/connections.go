package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avolkov/banksync/internal/domain"
)

const connectionColumns = `
	c.id, c.user_id, u.email, c.institution_name, c.status, c.sync_status,
	c.access_token, c.last_synced_at, c.last_accessed_at,
	c.last_notified_at, c.notification_count,
	c.last_expiry_notified_at, c.expiry_notification_count,
	c.last_alerted_at, c.alert_count,
	c.last_status_changed_at, c.error_message, c.disabled`

const connectionFrom = `
	FROM bank_connections c
	JOIN users u ON u.id = c.user_id`

func scanConnection(row pgx.Row) (*domain.BankConnection, error) {
	var c domain.BankConnection
	err := row.Scan(
		&c.ID, &c.UserID, &c.UserEmail, &c.InstitutionName, &c.Status, &c.SyncStatus,
		&c.AccessToken, &c.LastSyncedAt, &c.LastAccessedAt,
		&c.LastNotifiedAt, &c.NotificationCount,
		&c.LastExpiryNotifiedAt, &c.ExpiryNotificationCount,
		&c.LastAlertedAt, &c.AlertCount,
		&c.LastStatusChangedAt, &c.ErrorMessage, &c.Disabled,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) queryConnections(ctx context.Context, query string, args ...any) ([]*domain.BankConnection, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.BankConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListDisconnectedCandidates selects broken connections not notified since
// notifiedBefore.
func (s *Store) ListDisconnectedCandidates(ctx context.Context, notifiedBefore time.Time) ([]*domain.BankConnection, error) {
	conns, err := s.queryConnections(ctx, `
		SELECT `+connectionColumns+connectionFrom+`
		WHERE c.status IN ('ERROR', 'LOGIN_REQUIRED', 'REQUIRES_ATTENTION')
		  AND c.disabled = false
		  AND (c.last_notified_at IS NULL OR c.last_notified_at < $1)
		ORDER BY c.last_notified_at ASC NULLS FIRST`, notifiedBefore)
	if err != nil {
		return nil, fmt.Errorf("list disconnected candidates: %w", err)
	}
	return conns, nil
}

// ListAbandonmentCandidates selects broken connections whose status changed
// before statusChangedBefore and that have been notified at least
// minNotifications times.
func (s *Store) ListAbandonmentCandidates(ctx context.Context, statusChangedBefore time.Time, minNotifications int) ([]*domain.BankConnection, error) {
	conns, err := s.queryConnections(ctx, `
		SELECT `+connectionColumns+connectionFrom+`
		WHERE c.status IN ('ERROR', 'LOGIN_REQUIRED', 'REQUIRES_ATTENTION')
		  AND c.disabled = false
		  AND c.last_status_changed_at < $1
		  AND c.notification_count >= $2`, statusChangedBefore, minNotifications)
	if err != nil {
		return nil, fmt.Errorf("list abandonment candidates: %w", err)
	}
	return conns, nil
}

// ListExpiringCandidates selects active connections not accessed since
// accessedBefore and not warned since expiryNotifiedBefore.
func (s *Store) ListExpiringCandidates(ctx context.Context, accessedBefore, expiryNotifiedBefore time.Time) ([]*domain.BankConnection, error) {
	conns, err := s.queryConnections(ctx, `
		SELECT `+connectionColumns+connectionFrom+`
		WHERE c.status = 'ACTIVE'
		  AND c.last_accessed_at < $1
		  AND (c.last_expiry_notified_at IS NULL OR c.last_expiry_notified_at < $2)`,
		accessedBefore, expiryNotifiedBefore)
	if err != nil {
		return nil, fmt.Errorf("list expiring candidates: %w", err)
	}
	return conns, nil
}

// ListExpiredCandidates selects active connections not accessed since
// accessedBefore.
func (s *Store) ListExpiredCandidates(ctx context.Context, accessedBefore time.Time) ([]*domain.BankConnection, error) {
	conns, err := s.queryConnections(ctx, `
		SELECT `+connectionColumns+connectionFrom+`
		WHERE c.status = 'ACTIVE'
		  AND c.last_accessed_at < $1`, accessedBefore)
	if err != nil {
		return nil, fmt.Errorf("list expired candidates: %w", err)
	}
	return conns, nil
}

// ListReconnectAlertCandidates selects LOGIN_REQUIRED connections not
// alerted since alertedBefore.
func (s *Store) ListReconnectAlertCandidates(ctx context.Context, alertedBefore time.Time) ([]*domain.BankConnection, error) {
	conns, err := s.queryConnections(ctx, `
		SELECT `+connectionColumns+connectionFrom+`
		WHERE c.status = 'LOGIN_REQUIRED'
		  AND c.disabled = false
		  AND (c.last_alerted_at IS NULL OR c.last_alerted_at < $1)`, alertedBefore)
	if err != nil {
		return nil, fmt.Errorf("list reconnect alert candidates: %w", err)
	}
	return conns, nil
}

// ListSyncCandidates selects connections due for a sync sweep: never synced,
// stale since syncedBefore, or explicitly scheduled. Connections in ERROR
// status are excluded, and the oldest-synced come first so no connection is
// starved.
func (s *Store) ListSyncCandidates(ctx context.Context, syncedBefore time.Time, limit int) ([]*domain.BankConnection, error) {
	conns, err := s.queryConnections(ctx, `
		SELECT `+connectionColumns+connectionFrom+`
		WHERE c.status <> 'ERROR'
		  AND c.disabled = false
		  AND (c.last_synced_at IS NULL OR c.last_synced_at < $1 OR c.sync_status = 'SCHEDULED')
		ORDER BY c.last_synced_at ASC NULLS FIRST
		LIMIT $2`, syncedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync candidates: %w", err)
	}
	return conns, nil
}

// ListConnectionsByUser selects a single user's enabled connections, used by
// the manually triggered sync.
func (s *Store) ListConnectionsByUser(ctx context.Context, userID string) ([]*domain.BankConnection, error) {
	conns, err := s.queryConnections(ctx, `
		SELECT `+connectionColumns+connectionFrom+`
		WHERE c.user_id = $1 AND c.disabled = false`, userID)
	if err != nil {
		return nil, fmt.Errorf("list connections by user: %w", err)
	}
	return conns, nil
}

// SetSyncStatus flips only the sync status.
func (s *Store) SetSyncStatus(ctx context.Context, id string, status domain.SyncStatus) error {
	_, err := s.db.Exec(ctx,
		`UPDATE bank_connections SET sync_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	return nil
}

// MarkSyncSucceeded records a completed sync: sync status back to IDLE and
// the sync/access timestamps advanced.
func (s *Store) MarkSyncSucceeded(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bank_connections
		SET sync_status = 'IDLE', error_message = '', last_synced_at = $2, last_accessed_at = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark sync succeeded: %w", err)
	}
	return nil
}

// MarkSyncFailed records a failed sync. When flipToError is set the
// connection status also moves to ERROR with the status-change timestamp
// updated.
func (s *Store) MarkSyncFailed(ctx context.Context, id, errorMessage string, flipToError bool) error {
	var err error
	if flipToError {
		_, err = s.db.Exec(ctx, `
			UPDATE bank_connections
			SET sync_status = 'FAILED', error_message = $2,
			    status = 'ERROR', last_status_changed_at = now()
			WHERE id = $1`, id, errorMessage)
	} else {
		_, err = s.db.Exec(ctx, `
			UPDATE bank_connections
			SET sync_status = 'FAILED', error_message = $2
			WHERE id = $1`, id, errorMessage)
	}
	if err != nil {
		return fmt.Errorf("mark sync failed: %w", err)
	}
	return nil
}

// RecordDisconnectedNotified increments the notification counter.
func (s *Store) RecordDisconnectedNotified(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bank_connections
		SET notification_count = notification_count + 1, last_notified_at = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("record disconnected notified: %w", err)
	}
	return nil
}

// RecordExpiryNotified increments the expiry notification counter.
func (s *Store) RecordExpiryNotified(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bank_connections
		SET expiry_notification_count = expiry_notification_count + 1, last_expiry_notified_at = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("record expiry notified: %w", err)
	}
	return nil
}

// RecordReconnectAlerted increments the alert counter.
func (s *Store) RecordReconnectAlerted(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bank_connections
		SET alert_count = alert_count + 1, last_alerted_at = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("record reconnect alerted: %w", err)
	}
	return nil
}

// SetRequiresAttention flips an expired connection so the next disconnected
// scan picks it up.
func (s *Store) SetRequiresAttention(ctx context.Context, id, errorMessage string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bank_connections
		SET status = 'REQUIRES_ATTENTION', error_message = $2, last_status_changed_at = now()
		WHERE id = $1`, id, errorMessage)
	if err != nil {
		return fmt.Errorf("set requires attention: %w", err)
	}
	return nil
}

// DisableConnection performs the terminal abandonment transition: the
// connection is disconnected and disabled, and every child account is
// disabled in the same transaction.
func (s *Store) DisableConnection(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE bank_connections
			SET status = 'DISCONNECTED', disabled = true, last_status_changed_at = now()
			WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("disable connection: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE bank_accounts
			SET enabled = false, status = 'DISCONNECTED'
			WHERE connection_id = $1`, id)
		if err != nil {
			return fmt.Errorf("disable child accounts: %w", err)
		}
		return nil
	})
	return err
}
