// Package config loads application configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the media tooling.
type Config struct {
	AppEnv   string
	LogLevel string
	LogFile  string

	// Object storage. STORAGE_BACKEND selects "s3" (AWS), "minio" (any
	// S3-compatible endpoint) or "memory" (in-process, for dry runs).
	StorageBackend    string
	StorageEndpoint   string
	StorageAccessKey  string
	StorageSecretKey  string
	StorageRegion     string
	StorageBucket     string
	StorageUseSSL     bool
	StorageEnsure     bool   // create the bucket with a public-read policy if missing
	StoragePublicBase string // origin of issued URLs; empty derives it from the backend
	StorageURLHost    string // regexp matched against the host of URLs passed to delete

	// StorageTimeout bounds each backend HTTP request; OpTimeout bounds a
	// whole operator command. Zero disables either.
	StorageTimeout time.Duration
	OpTimeout      time.Duration
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, reading from environment")
	}

	return &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		StorageBackend:    getEnv("STORAGE_BACKEND", "s3"),
		StorageEndpoint:   getEnv("STORAGE_ENDPOINT", ""),
		StorageAccessKey:  getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey:  getEnv("STORAGE_SECRET_KEY", ""),
		StorageRegion:     getEnv("STORAGE_REGION", "us-east-2"),
		StorageBucket:     getEnv("STORAGE_BUCKET", "media.gathr"),
		StorageUseSSL:     getBool("STORAGE_USE_SSL", true),
		StorageEnsure:     getBool("STORAGE_ENSURE_BUCKET", false),
		StoragePublicBase: getEnv("STORAGE_PUBLIC_BASE", ""),
		StorageURLHost:    getEnv("STORAGE_URL_HOST_PATTERN", ""),

		StorageTimeout: getDuration("STORAGE_TIMEOUT", 30*time.Second),
		OpTimeout:      getDuration("OP_TIMEOUT", 2*time.Minute),
	}
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}
