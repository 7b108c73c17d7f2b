// Package access implements the admission and consumption checks that guard
// video generation behind the account's usage ledger.
//
// Two mutually exclusive policies exist: credit-based (the canonical
// deployment mode — free accounts get a periodic credit allowance, pro
// subscribers are unlimited) and trial-based (access while the trial window
// is open or a subscription is active). A gate is constructed with exactly
// one policy; the two are never mixed against the same account record.
package access

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lenavs/backend/internal/models"
)

// Store is the account-store collaborator the gate mutates the ledger
// through. The reset and consume operations must be atomic per account.
type Store interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// ResetCredits restores the balance iff credits_reset_at <= cutoff.
	// Must be idempotent within one reset window.
	ResetCredits(ctx context.Context, id uuid.UUID, credits int, cutoff time.Time) (bool, error)
	// ConsumeCredit decrements one credit iff the balance is positive.
	// ok is false when the balance was already exhausted.
	ConsumeCredit(ctx context.Context, id uuid.UUID) (remaining int, ok bool, err error)
}

// Policy selects which gating mode the deployment runs in.
type Policy string

const (
	PolicyCredits Policy = "credits"
	PolicyTrial   Policy = "trial"
)

// Decision is the outcome of one gate evaluation. Produced fresh per call,
// never stored.
type Decision struct {
	Allowed bool
	Reason  models.DenyReason // set only when Allowed is false
}

func allow() Decision                        { return Decision{Allowed: true} }
func deny(reason models.DenyReason) Decision { return Decision{Reason: reason} }

type Gate struct {
	store       Store
	policy      Policy
	freeCredits int
	resetPeriod time.Duration
	now         func() time.Time
}

func New(store Store, freeCredits int, resetPeriod time.Duration) *Gate {
	return &Gate{
		store:       store,
		policy:      PolicyCredits,
		freeCredits: freeCredits,
		resetPeriod: resetPeriod,
		now:         time.Now,
	}
}

// NewTrial builds a gate running the trial-based policy instead of the
// credit ledger.
func NewTrial(store Store) *Gate {
	return &Gate{
		store:  store,
		policy: PolicyTrial,
		now:    time.Now,
	}
}

// Admit decides whether the account may start a generation. It never
// decrements credits; that happens at download time via Consume.
func (g *Gate) Admit(ctx context.Context, accountID uuid.UUID) (Decision, error) {
	account, err := g.store.GetAccount(ctx, accountID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load account: %w", err)
	}

	if g.policy == PolicyTrial {
		return g.evaluateTrial(account), nil
	}

	if isUnlimited(account) {
		return allow(), nil
	}

	if account.Plan != models.PlanFree {
		return deny(models.DenyInvalidPlan), nil
	}

	account, err = g.resetIfDue(ctx, account)
	if err != nil {
		return Decision{}, err
	}

	if account.Credits > 0 {
		return allow(), nil
	}

	return deny(models.DenyCreditsExhausted), nil
}

// Consume performs the delivery-time credit decrement. Pro subscribers are
// never touched. A store error is retried once before surfacing, covering
// transient update conflicts; exhaustion between admission and download is
// a denial, not an error.
func (g *Gate) Consume(ctx context.Context, accountID uuid.UUID) (Decision, error) {
	account, err := g.store.GetAccount(ctx, accountID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load account: %w", err)
	}

	if g.policy == PolicyTrial {
		return g.evaluateTrial(account), nil
	}

	if isUnlimited(account) {
		return allow(), nil
	}

	if account.Plan != models.PlanFree {
		return deny(models.DenyInvalidPlan), nil
	}

	if _, err := g.resetIfDue(ctx, account); err != nil {
		return Decision{}, err
	}

	_, ok, err := g.store.ConsumeCredit(ctx, accountID)
	if err != nil {
		log.Printf("[Gate] credit consume failed for %s, retrying once: %v", accountID, err)
		_, ok, err = g.store.ConsumeCredit(ctx, accountID)
	}
	if err != nil {
		return Decision{}, fmt.Errorf("failed to consume credit: %w", err)
	}

	if !ok {
		return deny(models.DenyCreditsExhausted), nil
	}

	return allow(), nil
}

// Status returns the account with the same reset-if-due logic applied as
// admission, so a displayed balance is never stale by more than one window.
func (g *Gate) Status(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := g.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if g.policy == PolicyTrial || account.Plan != models.PlanFree {
		return account, nil
	}

	return g.resetIfDue(ctx, account)
}

// resetIfDue restores the free balance once the reset window has elapsed.
// The cutoff passed to the store makes the boundary inclusive: an account
// whose last reset is exactly one window old resets now; one second short
// of the window does not.
func (g *Gate) resetIfDue(ctx context.Context, account *models.Account) (*models.Account, error) {
	now := g.now()
	if now.Sub(account.CreditsResetAt) < g.resetPeriod {
		return account, nil
	}

	cutoff := now.Add(-g.resetPeriod)
	if _, err := g.store.ResetCredits(ctx, account.ID, g.freeCredits, cutoff); err != nil {
		return nil, fmt.Errorf("failed to reset credits: %w", err)
	}

	// A concurrent request may have reset first; either way the stored
	// state is now fresh for this window.
	return g.store.GetAccount(ctx, account.ID)
}

func (g *Gate) evaluateTrial(account *models.Account) Decision {
	if account.SubscriptionStatus == models.SubscriptionActive {
		return allow()
	}
	if account.TrialEnd != nil && !g.now().After(*account.TrialEnd) {
		return allow()
	}
	return deny(models.DenyTrialExpired)
}

// isUnlimited reports whether credits are never consulted for this account.
func isUnlimited(account *models.Account) bool {
	return account.Plan == models.PlanPro && account.SubscriptionStatus == models.SubscriptionActive
}
