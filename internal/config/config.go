package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabasePath  string
	CatalogAPIURL string
	PriceFeedURL  string
	Port          string
	Environment   string

	// Cloud replica (optional). Empty CloudBaseURL disables the replica
	// and the system runs local-only.
	CloudBaseURL      string
	CloudAPIKey       string
	CloudQueryTimeout time.Duration

	PollInterval         time.Duration
	HistoryRetentionDays int
	CatalogStaleAfter    time.Duration
}

func Load() *Config {
	return &Config{
		DatabasePath:  getEnv("DATABASE_PATH", "skinvault.db"),
		CatalogAPIURL: getEnv("CATALOG_API_URL", "https://bymykel.github.io/CSGO-API/api/en"),
		PriceFeedURL:  getEnv("PRICE_FEED_URL", "https://prices.csgotrader.app/latest"),
		Port:          getEnv("PORT", "8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		CloudBaseURL:      getEnv("CLOUD_BASE_URL", ""),
		CloudAPIKey:       getEnv("CLOUD_API_KEY", ""),
		CloudQueryTimeout: getDuration("CLOUD_QUERY_TIMEOUT", 4*time.Second),

		PollInterval:         getDuration("POLL_INTERVAL", 30*time.Minute),
		HistoryRetentionDays: getInt("HISTORY_RETENTION_DAYS", 30),
		CatalogStaleAfter:    getDuration("CATALOG_STALE_AFTER", 24*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
