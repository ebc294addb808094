package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config aggregates worker configuration loaded from the environment.
type Config struct {
	DatabaseURL string

	StorageBucket string

	ProviderBaseURL string
	ProviderSecret  string

	EventsEndpoint string
	EventsAPIKey   string

	AdminAddr string

	LogLevel   string
	LogConsole bool

	// Sweep tuning.
	SyncBatchSize     int
	SyncInterval      time.Duration
	HealthInterval    time.Duration
	RetrievalTimeout  time.Duration
	ParseTimeout      time.Duration
	RetrievalAttempts int
}

const (
	defaultAdminAddr         = ":9090"
	defaultSyncBatchSize     = 50
	defaultSyncInterval      = time.Hour
	defaultHealthInterval    = 6 * time.Hour
	defaultRetrievalTimeout  = 30 * time.Second
	defaultParseTimeout      = 2 * time.Minute
	defaultRetrievalAttempts = 3
)

// Load reads configuration from environment variables, applying defaults.
// DATABASE_URL is the only required value.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	cfg := &Config{
		DatabaseURL:       dbURL,
		StorageBucket:     os.Getenv("STORAGE_BUCKET"),
		ProviderBaseURL:   os.Getenv("PROVIDER_BASE_URL"),
		ProviderSecret:    os.Getenv("PROVIDER_SECRET"),
		EventsEndpoint:    os.Getenv("EVENTS_ENDPOINT"),
		EventsAPIKey:      os.Getenv("EVENTS_API_KEY"),
		AdminAddr:         valueOrDefault("ADMIN_ADDR", defaultAdminAddr),
		LogLevel:          valueOrDefault("LOG_LEVEL", "info"),
		LogConsole:        parseBoolWithDefault("LOG_CONSOLE", false),
		SyncBatchSize:     parseIntWithDefault("SYNC_BATCH_SIZE", defaultSyncBatchSize),
		SyncInterval:      parseDurationWithDefault("SYNC_INTERVAL", defaultSyncInterval),
		HealthInterval:    parseDurationWithDefault("HEALTH_INTERVAL", defaultHealthInterval),
		RetrievalTimeout:  parseDurationWithDefault("RETRIEVAL_TIMEOUT", defaultRetrievalTimeout),
		ParseTimeout:      parseDurationWithDefault("PARSE_TIMEOUT", defaultParseTimeout),
		RetrievalAttempts: parseIntWithDefault("RETRIEVAL_ATTEMPTS", defaultRetrievalAttempts),
	}

	return cfg, nil
}

func valueOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntWithDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseBoolWithDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func parseDurationWithDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
