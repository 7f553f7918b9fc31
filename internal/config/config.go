// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for all databases (always absolute)
	Port         int
	LogLevel     string
	DevMode      bool
	RiskFreeRate float64 // Annual risk-free rate used in Sharpe ratios
	LookbackDays int     // Historical window for risk computations

	PriceProviderURL string // Base URL of the daily price CSV provider
	PriceSyncSpec    string // Cron spec for the price sync job

	Backup *BackupConfig
}

// BackupConfig holds S3-compatible backup settings. Disabled when no bucket
// is configured.
type BackupConfig struct {
	Enabled       bool
	Bucket        string
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Prefix        string
	RetentionDays int // 0 keeps all backups
	Spec          string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("RISKENGINE_DATA_DIR", "")
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
		DataDir:          absDataDir,
		Port:             getEnvAsInt("PORT", 8001),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		RiskFreeRate:     getEnvAsFloat("RISK_FREE_RATE", 0.02),
		LookbackDays:     getEnvAsInt("LOOKBACK_DAYS", 252),
		PriceProviderURL: getEnv("PRICE_PROVIDER_URL", "https://stooq.com"),
		PriceSyncSpec:    getEnv("PRICE_SYNC_SPEC", "0 30 18 * * MON-FRI"),
		Backup:           loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.LookbackDays < 2 {
		return fmt.Errorf("LOOKBACK_DAYS must be at least 2, got %d", c.LookbackDays)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be a valid port number, got %d", c.Port)
	}
	return nil
}

func loadBackupConfig() *BackupConfig {
	bucket := getEnv("BACKUP_S3_BUCKET", "")
	return &BackupConfig{
		Enabled:       bucket != "",
		Bucket:        bucket,
		Endpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:        getEnv("BACKUP_S3_REGION", "auto"),
		AccessKey:     getEnv("BACKUP_S3_ACCESS_KEY", ""),
		SecretKey:     getEnv("BACKUP_S3_SECRET_KEY", ""),
		Prefix:        getEnv("BACKUP_S3_PREFIX", "riskengine"),
		RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		Spec:          getEnv("BACKUP_SPEC", "0 0 3 * * *"),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
