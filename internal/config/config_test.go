package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "LOG_FORMAT",
		"DATABASE_URL", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"SCORE_JITTER_SEED", "SHUTDOWN_PERIOD",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultEnv, cfg.Env)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultLogFmt, cfg.LogFmt)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Zero(t, cfg.JitterSeed)
	assert.Equal(t, DefaultShutdownPeriod, cfg.ShutdownPeriod)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "staging")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DATABASE_URL", "postgres://localhost/sentra_test")
	t.Setenv("SCORE_JITTER_SEED", "42")
	t.Setenv("SHUTDOWN_PERIOD", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFmt)
	assert.Equal(t, "postgres://localhost/sentra_test", cfg.DatabaseURL)
	assert.Equal(t, int64(42), cfg.JitterSeed)
	assert.Equal(t, 30*time.Second, cfg.ShutdownPeriod)
}

func TestValidateRejectsUnknownEnv(t *testing.T) {
	t.Setenv("ENV", "qa")
	_, err := Load()
	assert.ErrorContains(t, err, "ENV must be")
}

func TestValidateRejectsJitterInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("SCORE_JITTER_SEED", "7")
	_, err := Load()
	assert.ErrorContains(t, err, "deterministic")
}

func TestValidateRejectsNonNumericPort(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("PORT", "eighty")
	_, err := Load()
	assert.ErrorContains(t, err, "PORT must be numeric")
}

func TestInvalidIntFallsBack(t *testing.T) {
	t.Setenv("SCORE_JITTER_SEED", "not-a-number")
	t.Setenv("ENV", "development")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.JitterSeed)
}
