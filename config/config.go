// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store backends for the session and group repositories.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	// HTTP
	HTTPAddr string

	// WhatsApp
	SessionID  string
	DeviceName string

	// Persistence
	StoreBackend string
	DBDsn        string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads environment variables and applies defaults. The memory store
// backend needs no database for the caches, but whatsmeow's device store
// always uses DBDsn.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.SessionID = os.Getenv("WA_SESSION_ID")
	if cfg.SessionID == "" {
		cfg.SessionID = "wa-bridge-session"
	}
	cfg.DeviceName = os.Getenv("WA_DEVICE_NAME")
	if cfg.DeviceName == "" {
		cfg.DeviceName = "wa-bridge"
	}

	cfg.StoreBackend = os.Getenv("STORE_BACKEND")
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = StoreMemory
	}
	if cfg.StoreBackend != StoreMemory && cfg.StoreBackend != StorePostgres {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: want %q or %q", cfg.StoreBackend, StoreMemory, StorePostgres)
	}

	cfg.DBDsn = os.Getenv("DB_DSN")
	if cfg.DBDsn == "" {
		cfg.DBDsn = "postgres://wa:wa@localhost:5432/wa?sslmode=disable"
	}

	cfg.RateLimitEnabled = os.Getenv("RATE_LIMIT_ENABLED") != "0"
	cfg.RateLimitRequests = envInt("RATE_LIMIT_REQUESTS", 100)
	if cfg.RateLimitRequests <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	windowSeconds := envInt("RATE_LIMIT_WINDOW_SECONDS", int((15 * time.Minute).Seconds()))
	if windowSeconds <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive")
	}
	cfg.RateLimitWindow = time.Duration(windowSeconds) * time.Second

	return cfg, nil
}

// envInt returns an integer environment variable value or default if not set or invalid.
func envInt(key string, defaultVal int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return defaultVal
}
