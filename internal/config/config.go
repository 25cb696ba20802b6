// Package config loads environment configuration and the semantic
// model catalog.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values.
type Config struct {
	// Snowflake connection
	Account   string
	User      string
	Password  string
	Warehouse string
	Database  string
	Schema    string
	Role      string

	// Analyst API
	AccountURL string
	Token      string
	APITimeout time.Duration

	// Behavior
	CatalogFile       string
	JapaneseResponses bool
	QueryCacheSize    int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	account := getEnv("SNOWFLAKE_ACCOUNT", "")

	return Config{
		Account:   account,
		User:      getEnv("SNOWFLAKE_USER", ""),
		Password:  getEnv("SNOWFLAKE_PASSWORD", ""),
		Warehouse: getEnv("SNOWFLAKE_WAREHOUSE", ""),
		Database:  getEnv("SNOWFLAKE_DATABASE", ""),
		Schema:    getEnv("SNOWFLAKE_SCHEMA", ""),
		Role:      getEnv("SNOWFLAKE_ROLE", ""),

		AccountURL: getEnv("SNOWFLAKE_ACCOUNT_URL", defaultAccountURL(account)),
		Token:      getEnv("SNOWFLAKE_TOKEN", ""),
		APITimeout: time.Duration(getEnvInt("ANALYST_API_TIMEOUT_MS", 500000)) * time.Millisecond,

		CatalogFile:       getEnv("ANALYST_MODELS_FILE", "models.yaml"),
		JapaneseResponses: getEnvBool("ANALYST_JAPANESE_RESPONSES", true),
		QueryCacheSize:    getEnvInt("ANALYST_QUERY_CACHE_SIZE", 1000),

		LogFile:  getEnv("ANALYST_LOG_FILE", "/tmp/analyst.log"),
		LogLevel: parseLogLevel(getEnv("ANALYST_LOG_LEVEL", "INFO")),
	}
}

func defaultAccountURL(account string) string {
	if account == "" {
		return ""
	}
	return "https://" + account + ".snowflakecomputing.com"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
