// Package config loads server configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort   string
	DatabasePath string

	// AuditCap bounds retained audit entries.
	AuditCap int

	// Night window boundaries, "HH:MM".
	NightStart string
	NightEnd   string

	// StoreTimeout bounds each persistence call; Debounce delays
	// department recalculation jobs so rapid limit edits coalesce.
	StoreTimeout time.Duration
	Debounce     time.Duration
}

// Load reads the environment. A missing .env file is not an error;
// deployed environments set variables directly.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/timeclock.db"),
		AuditCap:     getEnvInt("AUDIT_CAP", 10000),
		NightStart:   getEnv("NIGHT_START", "22:00"),
		NightEnd:     getEnv("NIGHT_END", "05:00"),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		Debounce:     getEnvDuration("RECALC_DEBOUNCE", 200*time.Millisecond),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
