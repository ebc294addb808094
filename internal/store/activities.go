package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/avolkov/banksync/internal/domain"
)

// InsertActivity appends one audit record. Rows are never updated.
func (s *Store) InsertActivity(ctx context.Context, activity *domain.UserActivity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}

	payload, err := json.Marshal(activity.Payload)
	if err != nil {
		return fmt.Errorf("encode activity payload: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO user_activities (id, user_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		activity.ID, activity.UserID, activity.Type, payload, activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}
