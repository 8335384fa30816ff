package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the marketplace service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	DatabaseURL string
	RedisURL    string

	// JWTSecret signs and verifies session tokens (HS256). An empty
	// secret leaves authenticated routes rejecting every request.
	JWTSecret string

	FeedBuffer int
	MatchLimit int
	CacheTTL   time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "matchwork"),
		AllowAnyOrigin:   false,
		DatabaseURL:      envTrimmed("DATABASE_URL"),
		RedisURL:         envTrimmed("REDIS_URL"),
		JWTSecret:        envTrimmed("APP_JWT_SECRET"),
		FeedBuffer:       64,
		MatchLimit:       5,
		CacheTTL:         30 * time.Second,
		ShutdownTimeout:  15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CacheTTL, err = durationFromEnv("APP_CACHE_TTL", cfg.CacheTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.FeedBuffer, err = intFromEnv("APP_FEED_BUFFER", cfg.FeedBuffer)
	if err != nil {
		return Config{}, err
	}
	cfg.MatchLimit, err = intFromEnv("APP_MATCH_LIMIT", cfg.MatchLimit)
	if err != nil {
		return Config{}, err
	}

	if cfg.FeedBuffer <= 0 {
		return Config{}, fmt.Errorf("APP_FEED_BUFFER must be positive")
	}
	if cfg.MatchLimit <= 0 {
		return Config{}, fmt.Errorf("APP_MATCH_LIMIT must be positive")
	}
	if cfg.CacheTTL < 0 {
		return Config{}, fmt.Errorf("APP_CACHE_TTL must not be negative")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
