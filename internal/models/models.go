package models

import (
	"time"

	"github.com/google/uuid"
)

// Enums

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

type SubscriptionStatus string

const (
	SubscriptionNone     SubscriptionStatus = "none"
	SubscriptionTrial    SubscriptionStatus = "trial"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

type VideoStatus string

const (
	VideoStatusQueued     VideoStatus = "queued"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

type BackgroundType string

const (
	BackgroundVideo BackgroundType = "video"
	BackgroundImage BackgroundType = "image"
	BackgroundColor BackgroundType = "color"
)

// DenyReason explains why the access gate rejected a request.
type DenyReason string

const (
	DenyNoToken          DenyReason = "no-token"
	DenyTrialExpired     DenyReason = "trial-expired"
	DenyCreditsExhausted DenyReason = "credits-exhausted"
	DenyInvalidPlan      DenyReason = "invalid-plan"
)

// Models

// Account is the durable usage-state record for one user. The credit fields
// are mutated only through the access gate's reset and consume operations.
type Account struct {
	ID                 uuid.UUID          `json:"id"`
	Email              string             `json:"email"`
	Plan               Plan               `json:"plan"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	Credits            int                `json:"credits"`
	CreditsResetAt     time.Time          `json:"credits_reset_at"`
	TrialEnd           *time.Time         `json:"trial_end,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Video is one generation request and its outcome. The deliverable is
// referenced by an opaque id resolved through the storage layer, never by
// picking apart a public URL.
type Video struct {
	ID              uuid.UUID      `json:"id"`
	AccountID       uuid.UUID      `json:"account_id"`
	ProjectName     string         `json:"project_name"`
	BackgroundType  BackgroundType `json:"background_type"`
	Status          VideoStatus    `json:"status"`
	DeliverableID   *uuid.UUID     `json:"deliverable_id,omitempty"`
	DurationSeconds *float64       `json:"duration_seconds,omitempty"`
	ErrorCode       *string        `json:"error_code,omitempty"`
	ErrorMessage    *string        `json:"error_message,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// BillingEvent records an already-applied payment-provider event so that
// at-least-once webhook delivery stays idempotent.
type BillingEvent struct {
	EventID     string    `json:"event_id"`
	AccountID   uuid.UUID `json:"account_id"`
	Type        string    `json:"type"`
	ProcessedAt time.Time `json:"processed_at"`
}

// DTOs for API requests and responses

type CreateVideoRequest struct {
	ProjectName     string         `json:"project_name"`
	AudioPath       string         `json:"audio_path"`
	BackgroundType  BackgroundType `json:"background_type"`
	BackgroundPath  *string        `json:"background_path,omitempty"`
	BackgroundColor *string        `json:"background_color,omitempty"`
}

type CreateVideoResponse struct {
	VideoID uuid.UUID   `json:"video_id"`
	Status  VideoStatus `json:"status"`
}

type VideoResponse struct {
	Video
	DeliverableURL *string `json:"deliverable_url,omitempty"`
}

type ListVideosResponse struct {
	Videos []VideoResponse `json:"videos"`
	Total  int             `json:"total"`
}

// AccountStatusResponse is the read-only ledger projection returned by /v1/me.
// CreditsRemaining is the string "unlimited" for active pro accounts and the
// numeric balance otherwise.
type AccountStatusResponse struct {
	ID                 uuid.UUID          `json:"id"`
	Email              string             `json:"email"`
	Plan               Plan               `json:"plan"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	CreditsRemaining   interface{}        `json:"credits_remaining"`
	CreditsResetAt     time.Time          `json:"credits_reset_at"`
}

// WebhookEvent is the payload accepted by the billing webhook. SessionID is
// the provider-side event/session id used as the idempotency key.
type WebhookEvent struct {
	SessionID string    `json:"session_id"`
	Type      string    `json:"type"`
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email,omitempty"`
}
