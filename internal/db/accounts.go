package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lenavs/backend/internal/models"
)

// GetAccount retrieves an account by its ID.
func (db *DB) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `
		SELECT id, email, plan, subscription_status, credits, credits_reset_at,
		       trial_end, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	account := &models.Account{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.Email, &account.Plan, &account.SubscriptionStatus,
		&account.Credits, &account.CreditsResetAt, &account.TrialEnd,
		&account.CreatedAt, &account.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// UpsertAccount creates an account row if the token holder has never been seen
// before. Existing rows keep their plan and ledger state; only the email is
// refreshed. New accounts start on the free plan with a full credit balance.
func (db *DB) UpsertAccount(ctx context.Context, id uuid.UUID, email string, credits int) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id, email, plan, subscription_status, credits, credits_reset_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			updated_at = NOW()
		RETURNING id, email, plan, subscription_status, credits, credits_reset_at,
		          trial_end, created_at, updated_at
	`

	account := &models.Account{}
	err := db.QueryRowContext(
		ctx, query,
		id, email, models.PlanFree, models.SubscriptionNone, credits,
	).Scan(
		&account.ID, &account.Email, &account.Plan, &account.SubscriptionStatus,
		&account.Credits, &account.CreditsResetAt, &account.TrialEnd,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}

	return account, nil
}

// ResetCredits restores the free-plan balance when the reset window has
// elapsed. The WHERE clause makes the operation atomic and idempotent: a
// second evaluation inside the same window matches zero rows. Returns true
// when a reset actually happened.
func (db *DB) ResetCredits(ctx context.Context, id uuid.UUID, credits int, cutoff time.Time) (bool, error) {
	query := `
		UPDATE accounts
		SET credits = $1, credits_reset_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND plan = $3 AND credits_reset_at <= $4
	`

	result, err := db.ExecContext(ctx, query, credits, id, models.PlanFree, cutoff)
	if err != nil {
		return false, fmt.Errorf("failed to reset credits: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows > 0, nil
}

// ConsumeCredit atomically decrements one credit. The credits > 0 guard in
// the WHERE clause is what closes the two-tabs race: of two concurrent calls
// against a single remaining credit, exactly one matches the row. Returns
// the remaining balance, or ok=false when the balance was already exhausted.
func (db *DB) ConsumeCredit(ctx context.Context, id uuid.UUID) (remaining int, ok bool, err error) {
	query := `
		UPDATE accounts
		SET credits = credits - 1, updated_at = NOW()
		WHERE id = $1 AND credits > 0
		RETURNING credits
	`

	err = db.QueryRowContext(ctx, query, id).Scan(&remaining)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to consume credit: %w", err)
	}

	return remaining, true, nil
}

// ApplySubscription sets the plan and subscription status from a billing
// webhook event. It is an upsert, not an unconditional update: payment
// events can arrive before the account's first authenticated request, so a
// missing row is created rather than failing the delivery.
func (db *DB) ApplySubscription(ctx context.Context, id uuid.UUID, email string, plan models.Plan, status models.SubscriptionStatus) error {
	query := `
		INSERT INTO accounts (id, email, plan, subscription_status, credits, credits_reset_at)
		VALUES ($1, $2, $3, $4, 0, NOW())
		ON CONFLICT (id) DO UPDATE SET
			plan = EXCLUDED.plan,
			subscription_status = EXCLUDED.subscription_status,
			updated_at = NOW()
	`

	if _, err := db.ExecContext(ctx, query, id, email, plan, status); err != nil {
		return fmt.Errorf("failed to apply subscription: %w", err)
	}

	return nil
}
