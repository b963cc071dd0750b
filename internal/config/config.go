package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Collector
	CollectorMode string // "public" or "mock"
	BaseURL       string
	UserAgent     string

	// Paging
	RequestTimeout  time.Duration
	RequestInterval time.Duration
	RetryAttempts   int
	RetryBackoff    time.Duration

	// MockLatency delays every synthetic page in mock mode.
	MockLatency time.Duration

	// Output
	OutputDir string
	LogLevel  string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		CollectorMode: getEnv("COLLECTOR_MODE", "public"),
		BaseURL:       strings.TrimRight(getEnv("REVIEWS_BASE_URL", "https://store.steampowered.com/appreviews"), "/"),
		UserAgent:     getEnv("REVIEWS_USER_AGENT", "review-scraper/1.0"),
		OutputDir:     getEnv("OUTPUT_DIR", "."),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestInterval, err = getDuration("REQUEST_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = getDuration("RETRY_BACKOFF", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.MockLatency, err = getDuration("MOCK_LATENCY", 0); err != nil {
		return nil, err
	}
	if cfg.RetryAttempts, err = getInt("RETRY_ATTEMPTS", 3); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be a duration such as 10s or 500ms"}
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be an integer"}
	}
	return n, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.CollectorMode != "public" && c.CollectorMode != "mock" {
		return &ConfigError{Field: "COLLECTOR_MODE", Message: "must be 'public' or 'mock'"}
	}
	if c.CollectorMode == "public" && c.BaseURL == "" {
		return &ConfigError{Field: "REVIEWS_BASE_URL", Message: "is required in public mode"}
	}
	if c.RequestTimeout <= 0 {
		return &ConfigError{Field: "REQUEST_TIMEOUT", Message: "must be positive"}
	}
	if c.RequestInterval < 0 {
		return &ConfigError{Field: "REQUEST_INTERVAL", Message: "must not be negative"}
	}
	if c.RetryAttempts < 1 {
		return &ConfigError{Field: "RETRY_ATTEMPTS", Message: "must be at least 1"}
	}
	if c.RetryBackoff < 0 {
		return &ConfigError{Field: "RETRY_BACKOFF", Message: "must not be negative"}
	}
	if c.MockLatency < 0 {
		return &ConfigError{Field: "MOCK_LATENCY", Message: "must not be negative"}
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, falling back to Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
