package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/lenavs")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, 3, cfg.FreeCredits)
	assert.Equal(t, 30*24*time.Hour, cfg.CreditResetPeriod)
	assert.Equal(t, 10*time.Minute, cfg.EncodeTimeout)
	assert.Equal(t, 2, cfg.MaxConcurrentJobs)
	assert.True(t, cfg.WorkerEnabled)
}

func TestLoadRequiredFields(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "s3cret")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/lenavs")
	t.Setenv("JWT_SECRET", "")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/lenavs")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("FREE_CREDITS", "10")
	t.Setenv("CREDIT_RESET_PERIOD", "168h")
	t.Setenv("ENCODE_TIMEOUT", "2m")
	t.Setenv("WORKER_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.FreeCredits)
	assert.Equal(t, 7*24*time.Hour, cfg.CreditResetPeriod)
	assert.Equal(t, 2*time.Minute, cfg.EncodeTimeout)
	assert.False(t, cfg.WorkerEnabled)
}

func TestGetEnvHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	assert.Equal(t, 5, getEnvInt("SOME_INT", 5))

	t.Setenv("SOME_BOOL", "not-a-bool")
	assert.True(t, getEnvBool("SOME_BOOL", true))

	t.Setenv("SOME_DUR", "not-a-duration")
	assert.Equal(t, time.Minute, getEnvDuration("SOME_DUR", time.Minute))
}
