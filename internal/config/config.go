// Package config loads the map client configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/prproute/mapclient/internal/session"
)

// Config holds the map client settings.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	RoutingBaseURL    string
	RoutingTimeout    time.Duration
	RoutingMaxRetries uint64

	// MapBounds restricts accepted map clicks. Nil disables the check.
	MapBounds *session.Bounds

	RateLimitPerMinute int
	RequireTLS         bool

	TelemetryEnabled bool
	OTLPEndpoint     string
}

// DefaultMapBounds covers Germany.
var DefaultMapBounds = session.Bounds{South: 47.1, West: 5.7, North: 55.2, East: 16.9}

// LoadDotEnv reads a .env file into the environment if one exists. Variables
// already set are not overridden. It reports whether a file was loaded.
func LoadDotEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

// FromEnv reads the configuration from environment variables.
func FromEnv() (Config, error) {
	var errs []error

	timeout, err := time.ParseDuration(getEnvOrDefault("ROUTING_TIMEOUT", "30s"))
	if err != nil || timeout <= 0 {
		errs = append(errs, fmt.Errorf("ROUTING_TIMEOUT: invalid duration %q", os.Getenv("ROUTING_TIMEOUT")))
	}

	retries, err := strconv.ParseUint(getEnvOrDefault("ROUTING_MAX_RETRIES", "0"), 10, 32)
	if err != nil {
		errs = append(errs, fmt.Errorf("ROUTING_MAX_RETRIES: %w", err))
	}

	rate, err := strconv.Atoi(getEnvOrDefault("RATE_LIMIT_PER_MINUTE", "120"))
	if err != nil || rate <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE: must be a positive integer"))
	}

	bounds, err := ParseBounds(getEnvOrDefault("MAP_BOUNDS", "47.1,5.7,55.2,16.9"))
	if err != nil {
		errs = append(errs, fmt.Errorf("MAP_BOUNDS: %w", err))
	}

	cfg := Config{
		Port:               getEnvOrDefault("APP_PORT", "8081"),
		Environment:        getEnvOrDefault("APP_ENV", "development"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		RoutingBaseURL:     getEnvOrDefault("ROUTING_BASE_URL", "http://localhost:8080/"),
		RoutingTimeout:     timeout,
		RoutingMaxRetries:  retries,
		MapBounds:          bounds,
		RateLimitPerMinute: rate,
		RequireTLS:         os.Getenv("REQUIRE_TLS") == "true",
		TelemetryEnabled:   os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
	return cfg, errors.Join(errs...)
}

// ParseBounds parses "south,west,north,east". An empty string returns nil.
func ParseBounds(s string) (*session.Bounds, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("want south,west,north,east, got %q", s)
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		v[i] = f
	}

	b := session.Bounds{South: v[0], West: v[1], North: v[2], East: v[3]}
	if b.South > b.North || b.West > b.East {
		return nil, fmt.Errorf("empty rectangle %q", s)
	}
	return &b, nil
}

// IsProduction reports whether the client runs in production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
