package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"a11ydash/database"
	"a11ydash/infrastructure/engine"
	"a11ydash/logging"
)

// AppConfig holds application-wide system configuration.
// This is infrastructure configuration, not user audit preferences.
type AppConfig struct {
	HTTPAddr    string
	HTTPLogPath string
	Database    *database.Config
	Logging     *logging.Config
	Engine      *engine.Config
}

// LoadAppConfigFromEnv loads complete application configuration from environment variables.
func LoadAppConfigFromEnv() *AppConfig {
	return &AppConfig{
		HTTPAddr:    getEnvWithDefault("HTTP_ADDR", ":4000"),
		HTTPLogPath: getEnvWithDefault("HTTP_LOG_PATH", ""),
		Database:    LoadDatabaseConfigFromEnv(),
		Logging:     LoadLoggingConfigFromEnv(),
		Engine:      LoadEngineConfigFromEnv(),
	}
}

// LoadDatabaseConfigFromEnv loads database configuration from environment variables.
func LoadDatabaseConfigFromEnv() *database.Config {
	return &database.Config{
		Path:              getEnvWithDefault("DB_PATH", "./a11ydash.db"),
		MaxOpenConns:      getEnvIntWithDefault("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:      getEnvIntWithDefault("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:   getEnvDurationWithDefault("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime:   getEnvDurationWithDefault("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
		BusyTimeoutMs:     getEnvIntWithDefault("DB_BUSY_TIMEOUT_MS", 5000),
		EnableForeignKeys: getEnvBoolWithDefault("DB_ENABLE_FOREIGN_KEYS", true),
		EnableWAL:         getEnvBoolWithDefault("DB_ENABLE_WAL", true),
	}
}

// LoadLoggingConfigFromEnv loads logging configuration from environment variables.
func LoadLoggingConfigFromEnv() *logging.Config {
	return &logging.Config{
		Level:  getEnvWithDefault("LOG_LEVEL", "info"),
		Format: getEnvWithDefault("LOG_FORMAT", "json"),
		Output: getEnvWithDefault("LOG_OUTPUT", "stdout"),
	}
}

// LoadEngineConfigFromEnv loads audit engine configuration from environment variables.
func LoadEngineConfigFromEnv() *engine.Config {
	return &engine.Config{
		Mode:           getEnvWithDefault("ENGINE_MODE", "chrome"),
		ChromePath:     getEnvWithDefault("ENGINE_CHROME_PATH", ""),
		NoSandbox:      getEnvBoolWithDefault("ENGINE_NO_SANDBOX", false),
		SnifferURL:     getEnvWithDefault("ENGINE_SNIFFER_URL", engine.DefaultSnifferURL),
		DefaultTimeout: getEnvDurationWithDefault("ENGINE_DEFAULT_TIMEOUT", 30*time.Second),
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(v string, def bool) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// Helper functions for environment variable parsing.
func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return parseBool(value, defaultValue)
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
