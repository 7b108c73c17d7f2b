package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lenavs/backend/internal/access"
	"github.com/lenavs/backend/internal/models"
	"github.com/lenavs/backend/internal/storage"
)

// Store is the slice of the database the handlers need.
type Store interface {
	CreateVideo(ctx context.Context, video *models.Video) error
	GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error)
	ListAccountVideos(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.Video, error)
	CountAccountVideos(ctx context.Context, accountID uuid.UUID) (int, error)
	RecordBillingEvent(ctx context.Context, eventID string, accountID uuid.UUID, eventType string) (bool, error)
	ApplySubscription(ctx context.Context, id uuid.UUID, email string, plan models.Plan, status models.SubscriptionStatus) error
}

// Gate performs the admission and consumption checks.
type Gate interface {
	Admit(ctx context.Context, accountID uuid.UUID) (access.Decision, error)
	Consume(ctx context.Context, accountID uuid.UUID) (access.Decision, error)
	Status(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
}

// Enqueuer hands generation jobs to the worker pool.
type Enqueuer interface {
	EnqueueGenerateVideo(ctx context.Context, videoID, accountID uuid.UUID, req models.CreateVideoRequest) error
}

// DeliverableStore resolves deliverable ids to streamable files.
type DeliverableStore interface {
	Path(id uuid.UUID) string
	Exists(id uuid.UUID) bool
}

type Handler struct {
	store         Store
	gate          Gate
	queue         Enqueuer
	deliverables  DeliverableStore
	uploadsDir    string
	webhookSecret string
}

func NewHandler(store Store, gate Gate, q Enqueuer, deliverables DeliverableStore, uploadsDir, webhookSecret string) *Handler {
	return &Handler{
		store:         store,
		gate:          gate,
		queue:         q,
		deliverables:  deliverables,
		uploadsDir:    uploadsDir,
		webhookSecret: webhookSecret,
	}
}

// CreateVideo handles POST /v1/videos. Admission runs before anything is
// created or enqueued; a denied account never reaches the pipeline.
func (h *Handler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req models.CreateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validateCreateVideo(&req, h.uploadsDir); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision, err := h.gate.Admit(r.Context(), accountID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to check access")
		return
	}
	if !decision.Allowed {
		respondDenied(w, decision.Reason)
		return
	}

	video := &models.Video{
		ID:             uuid.New(),
		AccountID:      accountID,
		ProjectName:    req.ProjectName,
		BackgroundType: req.BackgroundType,
		Status:         models.VideoStatusQueued,
	}

	if err := h.store.CreateVideo(r.Context(), video); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create video")
		return
	}

	if err := h.queue.EnqueueGenerateVideo(r.Context(), video.ID, accountID, req); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue generation")
		return
	}

	respondJSON(w, http.StatusAccepted, models.CreateVideoResponse{
		VideoID: video.ID,
		Status:  video.Status,
	})
}

// ListVideos handles GET /v1/videos for the caller's account.
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	total, err := h.store.CountAccountVideos(r.Context(), accountID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count videos")
		return
	}

	videos, err := h.store.ListAccountVideos(r.Context(), accountID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list videos")
		return
	}

	responses := make([]models.VideoResponse, 0, len(videos))
	for _, v := range videos {
		responses = append(responses, h.buildVideoResponse(v))
	}

	respondJSON(w, http.StatusOK, models.ListVideosResponse{Videos: responses, Total: total})
}

// GetVideo handles GET /v1/videos/{id}. Records belonging to other
// accounts are indistinguishable from missing ones.
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	videoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid video ID")
		return
	}

	video, err := h.store.GetVideo(r.Context(), videoID)
	if err != nil || video.AccountID != accountID {
		respondError(w, http.StatusNotFound, "Video not found")
		return
	}

	respondJSON(w, http.StatusOK, h.buildVideoResponse(*video))
}

// DownloadVideo handles GET /v1/videos/{id}/download. Consumption runs
// after the deliverable is confirmed present and before any byte is
// streamed, so an exhausted balance between admission and download denies
// the download instead of leaking a free one.
func (h *Handler) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	videoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid video ID")
		return
	}

	video, err := h.store.GetVideo(r.Context(), videoID)
	if err != nil || video.AccountID != accountID {
		respondError(w, http.StatusNotFound, "Video not found")
		return
	}

	if video.Status != models.VideoStatusCompleted || video.DeliverableID == nil {
		respondError(w, http.StatusNotFound, "Video not ready")
		return
	}

	if !h.deliverables.Exists(*video.DeliverableID) {
		respondError(w, http.StatusNotFound, "Deliverable missing")
		return
	}

	decision, err := h.gate.Consume(r.Context(), accountID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to consume credit")
		return
	}
	if !decision.Allowed {
		respondDenied(w, decision.Reason)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", video.ProjectName+".mp4"))
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, h.deliverables.Path(*video.DeliverableID))
}

// Me handles GET /v1/me — the read-only ledger projection.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	account, err := h.gate.Status(r.Context(), accountID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load account")
		return
	}

	var remaining interface{} = account.Credits
	if account.Plan == models.PlanPro && account.SubscriptionStatus == models.SubscriptionActive {
		remaining = "unlimited"
	}

	respondJSON(w, http.StatusOK, models.AccountStatusResponse{
		ID:                 account.ID,
		Email:              account.Email,
		Plan:               account.Plan,
		SubscriptionStatus: account.SubscriptionStatus,
		CreditsRemaining:   remaining,
		CreditsResetAt:     account.CreditsResetAt,
	})
}

// BillingWebhook handles POST /v1/billing/webhook. Providers deliver events
// at least once; the event id dedupe makes redelivery a no-op.
func (h *Handler) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.webhookSecret)) != 1 {
		respondError(w, http.StatusForbidden, "Invalid webhook secret")
		return
	}

	var event models.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid event payload")
		return
	}

	if event.SessionID == "" || event.Type == "" || event.AccountID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "Missing event fields")
		return
	}

	fresh, err := h.store.RecordBillingEvent(r.Context(), event.SessionID, event.AccountID, event.Type)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to record event")
		return
	}

	if !fresh {
		respondJSON(w, http.StatusOK, map[string]bool{"received": true, "duplicate": true})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		err = h.store.ApplySubscription(r.Context(), event.AccountID, event.Email, models.PlanPro, models.SubscriptionActive)
	case "customer.subscription.deleted":
		err = h.store.ApplySubscription(r.Context(), event.AccountID, event.Email, models.PlanFree, models.SubscriptionCanceled)
	default:
		log.Printf("[Webhook] unhandled event type: %s", event.Type)
	}

	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to apply event")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helpers

func (h *Handler) buildVideoResponse(video models.Video) models.VideoResponse {
	response := models.VideoResponse{Video: video}

	if video.Status == models.VideoStatusCompleted && video.DeliverableID != nil {
		url := fmt.Sprintf("/v1/videos/%s/download", video.ID)
		response.DeliverableURL = &url
	}

	return response
}

func validateCreateVideo(req *models.CreateVideoRequest, uploadsDir string) error {
	if req.ProjectName == "" {
		return fmt.Errorf("project_name is required")
	}
	if req.AudioPath == "" {
		return fmt.Errorf("audio_path is required")
	}

	audioPath, err := storage.ResolveUnder(uploadsDir, req.AudioPath)
	if err != nil {
		return fmt.Errorf("invalid audio_path: %v", err)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return fmt.Errorf("audio file not found")
	}

	switch req.BackgroundType {
	case models.BackgroundColor:
		// Unresolvable colors fall back to black in the resolver.
	case models.BackgroundImage, models.BackgroundVideo:
		if req.BackgroundPath == nil || *req.BackgroundPath == "" {
			return fmt.Errorf("background_path is required for %s backgrounds", req.BackgroundType)
		}
		bgPath, err := storage.ResolveUnder(uploadsDir, *req.BackgroundPath)
		if err != nil {
			return fmt.Errorf("invalid background_path: %v", err)
		}
		if _, err := os.Stat(bgPath); err != nil {
			return fmt.Errorf("background file not found")
		}
	default:
		return fmt.Errorf("background_type must be one of: video, image, color")
	}

	return nil
}

func respondDenied(w http.ResponseWriter, reason models.DenyReason) {
	respondJSON(w, http.StatusForbidden, map[string]string{
		"error":  "access denied",
		"reason": string(reason),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
