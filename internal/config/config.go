// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string
	LogFmt   string // "text" or "json"

	// Database. Optional: the engine falls back to in-memory stores when
	// unset, which is the demo and unit-test mode.
	DatabaseURL string

	// Tracing
	OTLPEndpoint string

	// Scoring
	JitterSeed     int64 // 0 disables score jitter (the default)
	ShutdownPeriod time.Duration
}

const (
	DefaultPort     = "8080"
	DefaultEnv      = "development"
	DefaultLogLevel = "info"
	DefaultLogFmt   = "text"

	DefaultShutdownPeriod = 10 * time.Second
)

// Load reads configuration from environment variables.
// It loads a .env file first if one is present (local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", DefaultPort),
		Env:            getEnv("ENV", DefaultEnv),
		LogLevel:       getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFmt:         getEnv("LOG_FORMAT", DefaultLogFmt),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		JitterSeed:     getEnvInt64("SCORE_JITTER_SEED", 0),
		ShutdownPeriod: getEnvDuration("SHUTDOWN_PERIOD", DefaultShutdownPeriod),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is coherent.
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENV must be development, staging, or production (got %q)", c.Env)
	}
	if c.Env == "production" && c.JitterSeed != 0 {
		return fmt.Errorf("SCORE_JITTER_SEED must not be set in production; scoring must be deterministic")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric (got %q)", c.Port)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
