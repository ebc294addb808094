package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/avolkov/banksync/internal/domain"
)

// ErrTeamNotFound is returned when an inbox row references a team that does
// not exist. Surfaced instead of the raw foreign-key violation.
var ErrTeamNotFound = errors.New("team not found")

// ErrInboxNotFound is returned when an inbox record does not exist.
var ErrInboxNotFound = errors.New("inbox record not found")

// CreateInbox inserts a new inbox row in status NEW. The owning team's
// existence is verified inside the same transaction so a missing team
// produces ErrTeamNotFound rather than a constraint violation.
func (s *Store) CreateInbox(ctx context.Context, in *domain.Inbox) error {
	meta, err := marshalMeta(in.Meta)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM teams WHERE id = $1)`, in.TeamID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check team: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrTeamNotFound, in.TeamID)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO inbox (id, team_id, file_path, file_name, content_type, size, status, meta, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
			in.ID, in.TeamID, in.FilePath, in.FileName, in.ContentType, in.Size, in.Status, meta)
		if err != nil {
			return fmt.Errorf("insert inbox row: %w", err)
		}
		return nil
	})
}

// GetInbox reads one inbox record.
func (s *Store) GetInbox(ctx context.Context, id string) (*domain.Inbox, error) {
	var in domain.Inbox
	var meta []byte
	err := s.db.QueryRow(ctx, `
		SELECT id, team_id, file_path, file_name, content_type, size, status,
		       display_name, type, amount, currency, date, website, description,
		       meta, created_at
		FROM inbox WHERE id = $1`, id,
	).Scan(
		&in.ID, &in.TeamID, &in.FilePath, &in.FileName, &in.ContentType, &in.Size, &in.Status,
		&in.DisplayName, &in.Type, &in.Amount, &in.Currency, &in.Date, &in.Website, &in.Description,
		&meta, &in.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrInboxNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get inbox: %w", err)
	}

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &in.Meta); err != nil {
			return nil, fmt.Errorf("decode inbox meta: %w", err)
		}
	}
	return &in, nil
}

// SetInboxStatus advances the record's status.
func (s *Store) SetInboxStatus(ctx context.Context, id string, status domain.InboxStatus) error {
	_, err := s.db.Exec(ctx,
		`UPDATE inbox SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set inbox status: %w", err)
	}
	return nil
}

// SetInboxFailure writes a terminal or degraded status together with the
// diagnostic meta.
func (s *Store) SetInboxFailure(ctx context.Context, id string, status domain.InboxStatus, metaFields map[string]any) error {
	meta, err := marshalMeta(metaFields)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`UPDATE inbox SET status = $2, meta = $3 WHERE id = $1`, id, status, meta)
	if err != nil {
		return fmt.Errorf("set inbox failure: %w", err)
	}
	return nil
}

// ReconcileInboxExtraction writes the extracted document fields and advances
// the record to the given status.
func (s *Store) ReconcileInboxExtraction(ctx context.Context, in *domain.Inbox) error {
	meta, err := marshalMeta(in.Meta)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		UPDATE inbox
		SET status = $2, display_name = $3, type = $4, amount = $5, currency = $6,
		    date = $7, website = $8, description = $9, meta = $10
		WHERE id = $1`,
		in.ID, in.Status, in.DisplayName, in.Type, in.Amount, in.Currency,
		in.Date, in.Website, in.Description, meta)
	if err != nil {
		return fmt.Errorf("reconcile inbox extraction: %w", err)
	}
	return nil
}

func marshalMeta(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode inbox meta: %w", err)
	}
	return data, nil
}
