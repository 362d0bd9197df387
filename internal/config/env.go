// Package config reads runtime configuration from the environment, with an
// optional .env file loaded once at startup.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/poi-recon/internal/match"
)

// LoadEnv loads variables from the first .env file found in the current or
// parent directories. Already-set environment variables win. A missing file
// is not an error.
func LoadEnv() error {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(path); err == nil {
			return godotenv.Load(path)
		}
	}
	return nil
}

// GetEnv gets an environment variable with a default.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer environment variable with a default.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// GetEnvFloat gets a float environment variable with a default.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvBool gets a boolean environment variable with a default.
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

// MatchSettings builds matcher settings from the environment, falling back to
// the standard defaults.
func MatchSettings() match.Settings {
	s := match.DefaultSettings()
	s.MinScore = GetEnvFloat("RECON_MIN_SCORE", s.MinScore)
	s.AutoConfirmThreshold = GetEnvFloat("RECON_AUTO_CONFIRM", s.AutoConfirmThreshold)
	s.SubstringFloor = GetEnvFloat("RECON_SUBSTRING_FLOOR", s.SubstringFloor)
	s.StreetBonus = GetEnvFloat("RECON_STREET_BONUS", s.StreetBonus)
	return s
}

// JobStorePath is where the session store keeps its jobs file.
func JobStorePath() string {
	return GetEnv("RECON_JOBS_FILE", "data/jobs.json")
}

// CachePath is the sqlite file backing the unmatched-listing cache.
func CachePath() string {
	return GetEnv("RECON_CACHE_DB", "data/unmatched_cache.db")
}
