// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Text-generation provider (OpenAI-compatible API)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Market data
	HistoryPeriodDays      int  // How far back daily bars are fetched (default 365)
	AllowSyntheticFallback bool // Fabricate tagged price bars when the provider fails (off by default)

	// Scoring
	RecommendationTTL time.Duration // How long a stored recommendation stays valid

	// Batch tasks
	TaskWorkers int // Worker pool size for batch analysis tasks

	// Remote backup (S3-compatible storage); disabled unless all fields are set
	Backup *BackupConfig
}

// BackupConfig holds S3-compatible backup storage configuration
type BackupConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Keep      int // Number of remote backups to retain
}

// Enabled reports whether backups are fully configured.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != "" && b.AccessKey != "" && b.SecretKey != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("STOCKPULSE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8000),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4.1-mini"),

		HistoryPeriodDays:      getEnvAsInt("HISTORY_PERIOD_DAYS", 365),
		AllowSyntheticFallback: getEnvAsBool("ALLOW_SYNTHETIC_FALLBACK", false),

		RecommendationTTL: time.Duration(getEnvAsInt("RECOMMENDATION_TTL_HOURS", 24)) * time.Hour,

		TaskWorkers: getEnvAsInt("TASK_WORKERS", 4),

		Backup: loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.TaskWorkers < 1 {
		return fmt.Errorf("task workers must be at least 1, got %d", c.TaskWorkers)
	}
	if c.RecommendationTTL <= 0 {
		return fmt.Errorf("recommendation TTL must be positive, got %s", c.RecommendationTTL)
	}

	// Note: OpenAI credentials are optional; analysis endpoints return errors
	// when the provider is not configured, everything else keeps working.
	return nil
}

// loadBackupConfig loads backup configuration from environment variables.
// Returns a config with empty fields (disabled) when not set.
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Endpoint:  getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:    getEnv("BACKUP_S3_REGION", "auto"),
		Bucket:    getEnv("BACKUP_S3_BUCKET", ""),
		AccessKey: getEnv("BACKUP_S3_ACCESS_KEY", ""),
		SecretKey: getEnv("BACKUP_S3_SECRET_KEY", ""),
		Keep:      getEnvAsInt("BACKUP_KEEP", 7),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
