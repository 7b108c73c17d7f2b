package api

import (
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds settings for the API router.
// Passed from main.go so the router can configure CORS and auth from env vars.
type RouterConfig struct {
	// JWTSecret validates bearer tokens on /v1 routes.
	JWTSecret string

	// FreeCredits is the starting balance given to newly provisioned accounts.
	FreeCredits int

	// WebhookEnabled mounts the billing webhook route when true.
	WebhookEnabled bool

	// CorsAllowedOrigins is a comma-separated list of allowed origins.
	// If empty, defaults to "*" (development mode).
	CorsAllowedOrigins string
}

func NewRouter(h *Handler, accounts AccountProvisioner, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (applied to all routes including /health)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// CORS: restrict origins when configured, otherwise allow all (dev mode)
	allowedOrigins := []string{"*"}
	if cfg.CorsAllowedOrigins != "" {
		origins := strings.Split(cfg.CorsAllowedOrigins, ",")
		trimmed := make([]string, 0, len(origins))
		for _, o := range origins {
			if s := strings.TrimSpace(o); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			allowedOrigins = trimmed
		}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Webhook-Secret"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check — public, no auth required
	r.Get("/health", h.Health)

	r.Route("/v1", func(r chi.Router) {
		// Billing webhook — authenticated by shared secret, not a user token
		if cfg.WebhookEnabled {
			r.Post("/billing/webhook", h.BillingWebhook)
		}

		// Everything else requires a bearer token
		r.Group(func(r chi.Router) {
			r.Use(JWTAuth(cfg.JWTSecret, accounts, cfg.FreeCredits))

			// Videos
			r.Get("/videos", h.ListVideos)
			r.Post("/videos", h.CreateVideo)
			r.Get("/videos/{id}", h.GetVideo)
			r.Get("/videos/{id}/download", h.DownloadVideo)

			// Account ledger projection
			r.Get("/me", h.Me)
		})
	})

	return r
}
