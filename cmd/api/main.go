package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lenavs/backend/internal/access"
	"github.com/lenavs/backend/internal/api"
	"github.com/lenavs/backend/internal/config"
	"github.com/lenavs/backend/internal/db"
	"github.com/lenavs/backend/internal/media"
	"github.com/lenavs/backend/internal/pipeline"
	"github.com/lenavs/backend/internal/queue"
	"github.com/lenavs/backend/internal/storage"
	"github.com/lenavs/backend/internal/worker"
)

func main() {
	log.Println("Starting LenaVS API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize deliverable storage
	stor, err := storage.New(cfg.DeliverablesDir)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Access gate over the account ledger (credit-based policy)
	gate := access.New(database, cfg.FreeCredits, cfg.CreditResetPeriod)

	// Create API handler
	handler := api.NewHandler(database, gate, q, stor, cfg.UploadsDir, cfg.WebhookSecret)
	router := api.NewRouter(handler, database, api.RouterConfig{
		JWTSecret:          cfg.JWTSecret,
		FreeCredits:        cfg.FreeCredits,
		WebhookEnabled:     cfg.WebhookSecret != "",
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.WebhookSecret == "" {
		log.Println("WARNING: BILLING_WEBHOOK_SECRET not set — billing webhook disabled")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		ffmpeg, err := media.NewFFmpeg(cfg.TempDir, cfg.EncodeTimeout)
		if err != nil {
			log.Fatalf("Failed to initialize ffmpeg service: %v", err)
		}

		resolver := media.NewResolver(ffmpeg, ffmpeg, media.ImageResizer{})
		orch := pipeline.NewOrchestrator(ffmpeg, resolver, ffmpeg)

		w := worker.New(database, q, stor, orch, cfg.UploadsDir)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
