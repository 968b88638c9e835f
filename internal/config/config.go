// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Market data client selection values.
const (
	ClientHTTP   = "http"
	ClientNative = "native"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for all databases (always absolute)
	Port             int
	DevMode          bool
	LogLevel         string
	MarketDataClient string // "http" (Yahoo query API) or "native" (go-yfinance)

	// Analytics
	RiskFreeRate float64 // Annual risk-free rate as a fraction, subtracted in Sharpe calculations
	DefaultRange string  // Default lookback window for analysis requests

	// Cache TTLs
	QuoteTTLMinutes      int
	FundamentalsTTLHours int
	HistoryMaxAgeHours   int

	// Background job schedules (cron expressions)
	QuoteRefreshSchedule  string
	HistorySyncSchedule   string
	CacheCleanupSchedule  string
	WALCheckpointSchedule string

	// Websocket stream
	StreamIntervalSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Data directory: resolve to absolute path and ensure it exists
	dataDir := getEnv("DATA_DIR", "data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("PORT", 8080),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MarketDataClient: getEnv("MARKET_DATA_CLIENT", ClientHTTP),

		RiskFreeRate: getEnvAsFloat("RISK_FREE_RATE", 0),
		DefaultRange: getEnv("DEFAULT_RANGE", "5y"),

		QuoteTTLMinutes:      getEnvAsInt("QUOTE_CACHE_TTL_MINUTES", 15),
		FundamentalsTTLHours: getEnvAsInt("FUNDAMENTALS_CACHE_TTL_HOURS", 24),
		HistoryMaxAgeHours:   getEnvAsInt("HISTORY_MAX_AGE_HOURS", 24),

		// Six-field cron expressions (seconds first)
		QuoteRefreshSchedule:  getEnv("QUOTE_REFRESH_SCHEDULE", "0 */15 9-17 * * 1-5"),
		HistorySyncSchedule:   getEnv("HISTORY_SYNC_SCHEDULE", "0 30 18 * * 1-5"),
		CacheCleanupSchedule:  getEnv("CACHE_CLEANUP_SCHEDULE", "0 0 3 * * *"),
		WALCheckpointSchedule: getEnv("WAL_CHECKPOINT_SCHEDULE", "0 0 * * * *"),

		StreamIntervalSeconds: getEnvAsInt("STREAM_INTERVAL_SECONDS", 15),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.MarketDataClient != ClientHTTP && c.MarketDataClient != ClientNative {
		return fmt.Errorf("invalid market data client %q (must be %q or %q)", c.MarketDataClient, ClientHTTP, ClientNative)
	}

	if c.QuoteTTLMinutes <= 0 || c.FundamentalsTTLHours <= 0 || c.HistoryMaxAgeHours <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	if c.StreamIntervalSeconds <= 0 {
		return fmt.Errorf("stream interval must be positive")
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
