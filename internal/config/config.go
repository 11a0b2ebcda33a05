// Package config provides configuration loading and management for the application.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string

	// Bearer token required on the /api/earn routes
	APIKey string

	// Key required in the X-Refresh-Key header to trigger a refresh
	RefreshKey string

	// Allowed CORS origin for the presentation layer
	CORSOrigin string

	// Database settings; URL selects postgres, Path selects sqlite.
	// When both are empty an in-process sqlite file is used.
	DatabaseURL  string
	DatabasePath string

	// Base URLs for the provider APIs
	LidoAPRURL   string
	LidoStatsURL string
	MarinadeURL  string
	DefiLlamaURL string

	// Per-adapter fetch timeout inside a refresh run
	FetchTimeout time.Duration

	// Candidate sanitation ceiling, in basis points
	MaxAPRBasisPoints int

	// Provider health breaker settings
	EnableBreaker    bool
	BreakerThreshold int
	BreakerCooldown  time.Duration

	// Refresh trigger rate limit (requests per second, burst)
	RefreshRateLimit float64
	RefreshRateBurst int

	// Optional webhook notified after each refresh run
	WebhookURL    string
	WebhookAPIKey string

	// Optional signing of refresh results
	EnableSigning bool

	// OpenTelemetry endpoint for observability
	OtelEndpoint string
}

// Load creates a new Config from environment variables
func Load() Config {
	return Config{
		Port:              GetEnvOrDefault("PORT", "8080"),
		APIKey:            os.Getenv("API_KEY"),
		RefreshKey:        os.Getenv("REFRESH_KEY"),
		CORSOrigin:        GetEnvOrDefault("CORS_ORIGIN", "http://localhost:3000"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DatabasePath:      GetEnvOrDefault("DATABASE_PATH", "yield.db"),
		LidoAPRURL:        GetEnvOrDefault("LIDO_APR_URL", "https://eth-api.lido.fi/v1/protocol/steth/apr/last"),
		LidoStatsURL:      GetEnvOrDefault("LIDO_STATS_URL", "https://eth-api.lido.fi/v1/protocol/steth/stats"),
		MarinadeURL:       GetEnvOrDefault("MARINADE_URL", "https://api.marinade.finance/msol/apy/1y"),
		DefiLlamaURL:      GetEnvOrDefault("DEFILLAMA_URL", "https://yields.llama.fi/pools"),
		FetchTimeout:      GetEnvAsDuration("FETCH_TIMEOUT", 30*time.Second),
		MaxAPRBasisPoints: GetEnvAsInt("MAX_APR_BASIS_POINTS", 100_000), // 1000%
		EnableBreaker:     GetEnvAsBool("ENABLE_PROVIDER_BREAKER", false),
		BreakerThreshold:  GetEnvAsInt("PROVIDER_BREAKER_THRESHOLD", 3),
		BreakerCooldown:   GetEnvAsDuration("PROVIDER_BREAKER_COOLDOWN", 5*time.Minute),
		RefreshRateLimit:  GetEnvAsFloat("REFRESH_RATE_LIMIT", 1.0),
		RefreshRateBurst:  GetEnvAsInt("REFRESH_RATE_BURST", 2),
		WebhookURL:        os.Getenv("WEBHOOK_URL"),
		WebhookAPIKey:     os.Getenv("WEBHOOK_API_KEY"),
		EnableSigning:     GetEnvAsBool("ENABLE_RESULT_SIGNING", false),
		OtelEndpoint:      GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
