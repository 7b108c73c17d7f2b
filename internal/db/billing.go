package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RecordBillingEvent claims a webhook event id for processing. Payment
// providers deliver webhooks at least once, so the event id is the
// idempotency key: the first insert wins and every redelivery matches the
// conflict clause. Returns false when the event was already applied.
func (db *DB) RecordBillingEvent(ctx context.Context, eventID string, accountID uuid.UUID, eventType string) (bool, error) {
	query := `
		INSERT INTO billing_events (event_id, account_id, type, processed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	result, err := db.ExecContext(ctx, query, eventID, accountID, eventType)
	if err != nil {
		return false, fmt.Errorf("failed to record billing event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows > 0, nil
}
