package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// GetEnvString returns the value of an environment variable or the default
// value if not set. It performs no validation and logs no warnings.
//
// Example:
//
//	dsn := GetEnvString("DATABASE_URL", "")
func GetEnvString(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvInt returns the value of an environment variable as an integer.
//
// If the environment variable is not set, empty, or cannot be parsed as an
// integer, this function returns the default value and logs a warning.
//
// Example:
//
//	port := GetEnvInt("PORT", 8080)
func GetEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		slog.Warn("invalid integer value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.Int("default", defaultValue),
			slog.String("error", err.Error()))
		return defaultValue
	}

	return value
}

// GetEnvUint32 returns the value of an environment variable as a uint32.
//
// If the environment variable is not set, empty, negative, or cannot be
// parsed, this function returns the default value and logs a warning.
//
// Example:
//
//	threshold := GetEnvUint32("BREAKER_FAILURE_THRESHOLD", 5)
func GetEnvUint32(key string, defaultValue uint32) uint32 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var value int64
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil || value < 0 || value > int64(^uint32(0)) {
		slog.Warn("invalid uint32 value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.Uint64("default", uint64(defaultValue)))
		return defaultValue
	}

	return uint32(value)
}

// GetEnvBool returns the value of an environment variable as a boolean.
//
// Accepted true values: "1", "t", "T", "true", "TRUE", "True"
// Accepted false values: "0", "f", "F", "false", "FALSE", "False"
//
// If the environment variable is not set, empty, or has an invalid value,
// this function returns the default value and logs a warning.
func GetEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	switch valueStr {
	case "1", "t", "T", "true", "TRUE", "True":
		return true
	case "0", "f", "F", "false", "FALSE", "False":
		return false
	default:
		slog.Warn("invalid boolean value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.Bool("default", defaultValue))
		return defaultValue
	}
}

// GetEnvDuration returns the value of an environment variable as a
// time.Duration. The value must be parseable by time.ParseDuration
// (e.g., "1m", "30s", "1h30m").
//
// If the environment variable is not set, empty, or cannot be parsed,
// this function returns the default value and logs a warning.
//
// Example:
//
//	cooldown := GetEnvDuration("BREAKER_COOLDOWN", 300*time.Second)
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		slog.Warn("invalid duration value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.String("default", defaultValue.String()),
			slog.String("error", err.Error()))
		return defaultValue
	}

	return value
}

// GetEnvStringList returns a comma-separated list of strings from an
// environment variable. Values are trimmed of whitespace and empty values
// are filtered out.
//
// Example:
//
//	services := GetEnvStringList("SERVICES", []string{"matcher", "scorer"})
func GetEnvStringList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

// GetEnvStringMap returns a comma-separated list of key=value pairs from an
// environment variable. Entries without "=" are skipped with a warning.
//
// Example:
//
//	urls := GetEnvStringMap("PROBE_URLS", nil)
//	// PROBE_URLS="matcher=http://matcher:8081/healthz,cache=http://cache:6380/ping"
func GetEnvStringMap(key string, defaultValue map[string]string) map[string]string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	result := make(map[string]string)
	for _, part := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		name, value, ok := strings.Cut(trimmed, "=")
		if !ok || name == "" || value == "" {
			slog.Warn("invalid key=value entry for environment variable, skipping",
				slog.String("key", key),
				slog.String("entry", trimmed))
			continue
		}
		result[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
