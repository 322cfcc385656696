package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// config holds runtime settings read from the environment (and .env via godotenv).
type config struct {
	DBURL       string
	JWTSecret   string
	JWTIssuer   string
	AccessTTL   time.Duration
	Port        string
	CorsOrigins []string
	RedisURL    string // empty disables the accessor cache
	CacheTTL    time.Duration
}

// loadConfig reads configuration from environment variables. All missing
// required variables are reported in a single error so a misconfigured deploy
// fails once with the full list instead of one variable at a time.
func loadConfig() (config, error) {
	cfg := config{
		DBURL:       strings.TrimSpace(os.Getenv("DB_URL")),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:   envOr("JWT_ISSUER", "athlete-dev"),
		AccessTTL:   time.Duration(envOrInt("ACCESS_TTL_SECONDS", 14400)) * time.Second,
		Port:        envOr("PORT", "3000"),
		CorsOrigins: parseCSV(os.Getenv("CORS_ORIGINS")),
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
		CacheTTL:    time.Duration(envOrInt("CACHE_TTL_SECONDS", 300)) * time.Second,
	}

	var missing []string
	if cfg.DBURL == "" {
		missing = append(missing, "DB_URL")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

// envOrInt falls back on unparseable or non-positive values too.
func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			items = append(items, value)
		}
	}
	return items
}
