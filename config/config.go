// Package config provides configuration loading with Azure Key Vault integration.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingAccessToken is returned when no provider token is configured.
var ErrMissingAccessToken = errors.New("MAPBOX_ACCESS_TOKEN is required")

// Config holds the map service configuration.
type Config struct {
	// Service identification
	ServiceName string
	Environment string
	Version     string

	// HTTP server
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSAllowedOrigins []string

	// Inbound rate limiting
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	// Logging and telemetry
	LogLevel       string
	AppInsightsKey string
	OTLPEndpoint   string

	// Azure
	KeyVaultName string

	// Geocoding and directions provider
	MapboxAccessToken string
	PlacesBaseURL     string
	PlacesCountry     string
	PlacesLanguage    string
	PlacesProfile     string
	PlacesTimeout     time.Duration
	PlacesCacheTTL    time.Duration
	PlacesRPS         float64

	// PlacesCacheEntries caps the in-memory response cache used without Redis.
	PlacesCacheEntries int

	// Map presentation
	MapStyleLight   string
	MapStyleDark    string
	SuggestDebounce time.Duration
	SearchCooldown  time.Duration
	QuickCities     []string

	// Storage
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string
}

// SecretSource reads named secrets.
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// Load loads configuration from environment variables.
// For production, secrets are loaded from Azure Key Vault.
func Load(serviceName string) (*Config, error) {
	cfg := fromEnv(serviceName)

	// Load secrets from Key Vault outside development
	if cfg.KeyVaultName != "" && !cfg.IsDevelopment() {
		kv, err := NewKeyVaultClient(cfg.KeyVaultName)
		if err != nil {
			return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
		}
		if err := cfg.loadSecrets(context.Background(), kv); err != nil {
			return nil, fmt.Errorf("failed to load secrets from Key Vault: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithSecrets loads configuration from the environment and then
// overrides secrets from src.
func LoadWithSecrets(ctx context.Context, serviceName string, src SecretSource) (*Config, error) {
	cfg := fromEnv(serviceName)
	if err := cfg.loadSecrets(ctx, src); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad loads configuration and panics on error.
func MustLoad(serviceName string) *Config {
	cfg, err := Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func fromEnv(serviceName string) *Config {
	cfg := &Config{
		ServiceName:  serviceName,
		Environment:  getEnv("ENVIRONMENT", "development"),
		Version:      getEnv("VERSION", "0.0.1"),
		Port:         getEnvInt("PORT", 8080),
		ReadTimeout:  getEnvDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getEnvDuration("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:  getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		KeyVaultName: getEnv("KEY_VAULT_NAME", ""),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPS:     getEnvFloat("RATE_LIMIT_RPS", 100),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 200),

		AppInsightsKey: getEnv("APPINSIGHTS_INSTRUMENTATIONKEY", ""),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		MapboxAccessToken: getEnv("MAPBOX_ACCESS_TOKEN", ""),
		PlacesBaseURL:     getEnv("PLACES_BASE_URL", "https://api.mapbox.com"),
		PlacesCountry:     getEnv("PLACES_COUNTRY", "se"),
		PlacesLanguage:    getEnv("PLACES_LANGUAGE", "sv"),
		PlacesProfile:     getEnv("PLACES_PROFILE", "walking"),
		PlacesTimeout:     getEnvDuration("PLACES_TIMEOUT", 10*time.Second),
		PlacesCacheTTL:    getEnvDuration("PLACES_CACHE_TTL", 24*time.Hour),
		PlacesRPS:         getEnvFloat("PLACES_RPS", 10),

		PlacesCacheEntries: getEnvInt("PLACES_CACHE_ENTRIES", 10000),

		MapStyleLight:   getEnv("MAP_STYLE_LIGHT", "mapbox://styles/mapbox/streets-v12"),
		MapStyleDark:    getEnv("MAP_STYLE_DARK", "mapbox://styles/mapbox/dark-v11"),
		SuggestDebounce: getEnvDuration("SUGGEST_DEBOUNCE", 300*time.Millisecond),
		SearchCooldown:  getEnvDuration("SEARCH_COOLDOWN", 500*time.Millisecond),
		QuickCities:     getEnvSlice("QUICK_CITIES", "Stockholm,Göteborg,Malmö,Uppsala"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
	}

	defaultOrigins := "https://gobusker.se"
	if cfg.IsDevelopment() {
		defaultOrigins = "http://localhost:3000,http://localhost:8080"
	}
	cfg.CORSAllowedOrigins = getEnvSlice("CORS_ORIGINS", defaultOrigins)

	return cfg
}

func (c *Config) loadSecrets(ctx context.Context, src SecretSource) error {
	if src == nil {
		return nil
	}

	secrets := map[string]*string{
		"mapbox-access-token": &c.MapboxAccessToken,
		"database-url":        &c.DatabaseURL,
		"redis-password":      &c.RedisPassword,
		"appinsights-key":     &c.AppInsightsKey,
	}

	for name, ptr := range secrets {
		value, err := src.GetSecret(ctx, name)
		if errors.Is(err, ErrSecretNotFound) {
			// keep the environment value
			continue
		}
		if err != nil {
			return err
		}
		*ptr = value
	}
	return nil
}

// Validate reports configuration the service cannot start without.
func (c *Config) Validate() error {
	if c.MapboxAccessToken == "" {
		return ErrMissingAccessToken
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvSlice splits a comma separated variable, dropping empty elements.
func getEnvSlice(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetEnv gets an environment variable with a default value.
func GetEnv(key, defaultValue string) string {
	return getEnv(key, defaultValue)
}

// GetEnvInt gets an environment variable as an integer with a default value.
func GetEnvInt(key string, defaultValue int) int {
	return getEnvInt(key, defaultValue)
}

// GetEnvBool gets an environment variable as a boolean with a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	return getEnvBool(key, defaultValue)
}

// GetEnvDuration gets an environment variable as a duration with a default value.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return getEnvDuration(key, defaultValue)
}

// GetEnvFloat gets an environment variable as a float with a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	return getEnvFloat(key, defaultValue)
}

// GetEnvSlice gets a comma separated environment variable as a slice.
func GetEnvSlice(key, defaultValue string) []string {
	return getEnvSlice(key, defaultValue)
}
