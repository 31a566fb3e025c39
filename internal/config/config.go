// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/monitor.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Retailer registry
// --------------------------------------------------------------------------

// RetailerConfig describes a known storefront. The retailer set is open:
// listings from retailers outside the registry are still accepted, the
// registry only provides display names for the ones we scan ourselves.
type RetailerConfig struct {
	ID   string
	Name string
}

var RetailerRegistry = map[string]RetailerConfig{
	"WALMART":  {ID: "WALMART", Name: "Walmart"},
	"TARGET":   {ID: "TARGET", Name: "Target"},
	"BESTBUY":  {ID: "BESTBUY", Name: "Best Buy"},
	"GAMESTOP": {ID: "GAMESTOP", Name: "GameStop"},
}

// --------------------------------------------------------------------------
// Table names — single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	DropsTable  = "drops"
	EventsTable = "notification_events"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Scan cycle (expensive, hours) and alert cycle (cheap, minutes)
	ScanInterval  time.Duration
	AlertInterval time.Duration
	ScanWorkers   int
	SourcesFile   string

	// Notification channels
	DesktopNotify bool
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	EmailFrom     string
	EmailTo       []string

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("CARDWATCH_DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or CARDWATCH_DATABASE_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		ScanInterval:  time.Duration(envInt("SCAN_INTERVAL_HOURS", 6)) * time.Hour,
		AlertInterval: time.Duration(envInt("ALERT_INTERVAL_MINUTES", 15)) * time.Minute,
		ScanWorkers:   envInt("SCAN_WORKERS", 2),
		SourcesFile:   envOr("SOURCES_FILE", "sources.yaml"),

		DesktopNotify: envBool("DESKTOP_NOTIFY", false),
		SMTPHost:      envOr("SMTP_HOST", ""),
		SMTPPort:      envInt("SMTP_PORT", 587),
		SMTPUsername:  envOr("SMTP_USERNAME", ""),
		SMTPPassword:  envOr("SMTP_PASSWORD", ""),
		EmailFrom:     envOr("EMAIL_FROM", ""),
		EmailTo:       envList("EMAIL_TO", nil),

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// EmailEnabled reports whether the SMTP channel is fully configured.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.EmailFrom != "" && len(c.EmailTo) > 0
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
