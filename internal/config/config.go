package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL     string
	ResultsCSVURL   string
	Port            string
	RefreshInterval time.Duration
	CacheTTL        time.Duration
	AllowedOrigins  []string
	// SkipBadRows switches ingestion from fail-the-whole-batch (the default)
	// to skip-and-continue on rows that fail to parse.
	SkipBadRows bool
}

func Load() (*Config, error) {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	csvURL := os.Getenv("RESULTS_CSV_URL")
	if csvURL == "" {
		return nil, fmt.Errorf("RESULTS_CSV_URL is required")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	refresh, err := durationEnv("REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	ttl, err := durationEnv("CACHE_TTL", 60*time.Second)
	if err != nil {
		return nil, err
	}

	skipBadRows := false
	if v := os.Getenv("INGEST_SKIP_BAD_ROWS"); v != "" {
		skipBadRows, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("INGEST_SKIP_BAD_ROWS: %w", err)
		}
	}

	origins := os.Getenv("ALLOWED_ORIGINS")
	var allowedOrigins []string
	if origins != "" {
		allowedOrigins = strings.Split(origins, ",")
	}

	return &Config{
		DatabaseURL:     dbURL,
		ResultsCSVURL:   csvURL,
		Port:            port,
		RefreshInterval: refresh,
		CacheTTL:        ttl,
		AllowedOrigins:  allowedOrigins,
		SkipBadRows:     skipBadRows,
	}, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
