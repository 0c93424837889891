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
	DataDir   string // Base directory for all databases (always absolute)
	Port      int
	DevMode   bool
	LogLevel  string
	HTTPAgent string // User-Agent for outbound API calls (required by the prices API)

	// Natural-language SQL assistant
	LLMAPIURL string
	LLMAPIKey string
	LLMModel  string

	// SQL generation rate limiting (fixed window per client key)
	SQLRateLimit         int
	SQLRateWindowSeconds int

	// Item price catalog
	PricesAPIURL string

	// CSV import
	CSVImportDir  string
	ImportReplace bool // Replace previous batches from the same source instead of appending

	// Optional override for the bundled query pattern catalog
	QueryPatternsPath string

	// Cron schedules
	PriceRefreshSchedule string
	ImportScanSchedule   string
	StatsRebuildSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory: FLIPSIGHT_DATA_DIR, falling back to ./data,
	// always resolved to an absolute path that is created on startup.
	dataDir := getEnv("FLIPSIGHT_DATA_DIR", "data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		Port:                 getEnvAsInt("PORT", 8090),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		HTTPAgent:            getEnv("HTTP_USER_AGENT", "flipsight/1.0 (self-hosted flipping dashboard)"),
		LLMAPIURL:            getEnv("LLM_API_URL", ""),
		LLMAPIKey:            getEnv("LLM_API_KEY", ""),
		LLMModel:             getEnv("LLM_MODEL", "gpt-4o-mini"),
		SQLRateLimit:         getEnvAsInt("SQL_RATE_LIMIT", 20),
		SQLRateWindowSeconds: getEnvAsInt("SQL_RATE_WINDOW_SECONDS", 60),
		PricesAPIURL:         getEnv("PRICES_API_URL", "https://prices.runescape.wiki/api/v1/osrs"),
		CSVImportDir:         getEnv("CSV_IMPORT_DIR", filepath.Join(absDataDir, "imports")),
		ImportReplace:        getEnvAsBool("IMPORT_REPLACE", false),
		QueryPatternsPath:    getEnv("QUERY_PATTERNS_PATH", ""),
		PriceRefreshSchedule: getEnv("PRICE_REFRESH_SCHEDULE", "@every 5m"),
		ImportScanSchedule:   getEnv("IMPORT_SCAN_SCHEDULE", "@every 10m"),
		StatsRebuildSchedule: getEnv("STATS_REBUILD_SCHEDULE", "@daily"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and well-formed
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.SQLRateLimit <= 0 {
		return fmt.Errorf("SQL_RATE_LIMIT must be positive, got %d", c.SQLRateLimit)
	}
	if c.SQLRateWindowSeconds <= 0 {
		return fmt.Errorf("SQL_RATE_WINDOW_SECONDS must be positive, got %d", c.SQLRateWindowSeconds)
	}
	if c.QueryPatternsPath != "" {
		if _, err := os.Stat(c.QueryPatternsPath); err != nil {
			return fmt.Errorf("QUERY_PATTERNS_PATH does not point to a readable file: %w", err)
		}
	}
	return nil
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
