package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	JWTSecret          string // HS256 secret used to validate bearer tokens
	WebhookSecret      string // Shared secret for the billing webhook (empty = webhook disabled)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Filesystem
	UploadsDir      string // Root for caller-referenced audio/background files
	TempDir         string // Scratch space for pipeline intermediates
	DeliverablesDir string // Final muxed videos, addressed by opaque id

	// Rendering
	EncodeTimeout time.Duration // Bound on any single ffmpeg/ffprobe invocation

	// Credits
	FreeCredits       int           // Balance granted to free accounts on each reset
	CreditResetPeriod time.Duration // Window between automatic free-plan resets

	// Worker
	MaxConcurrentJobs int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		WebhookSecret:      getEnv("BILLING_WEBHOOK_SECRET", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		UploadsDir:         getEnv("UPLOADS_DIR", "uploads"),
		TempDir:            getEnv("TEMP_DIR", "/tmp/lenavs"),
		DeliverablesDir:    getEnv("DELIVERABLES_DIR", "deliverables"),
		EncodeTimeout:      getEnvDuration("ENCODE_TIMEOUT", 10*time.Minute),
		FreeCredits:        getEnvInt("FREE_CREDITS", 3),
		CreditResetPeriod:  getEnvDuration("CREDIT_RESET_PERIOD", 30*24*time.Hour),
		MaxConcurrentJobs:  getEnvInt("MAX_CONCURRENT_JOBS", 2),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.FreeCredits <= 0 {
		return nil, fmt.Errorf("FREE_CREDITS must be positive")
	}

	if cfg.CreditResetPeriod <= 0 {
		return nil, fmt.Errorf("CREDIT_RESET_PERIOD must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
