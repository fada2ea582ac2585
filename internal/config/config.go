package config

import (
	"errors"
	"os"
	"time"
)

type Config struct {
	ServerPort     string
	DatabaseURL    string
	RedisURL       string
	BackendBaseURL string
	BackendVersion string
	SelfClientID   string
	AccessToken    string
	SyncInterval   time.Duration
	HTTPTimeout    time.Duration
	LogLevel       string
	LogFile        string
}

func LoadConfig() (*Config, error) {
	syncInterval, err := time.ParseDuration(getEnv("SYNC_INTERVAL", "30s"))
	if err != nil {
		return nil, errors.New("invalid SYNC_INTERVAL format")
	}

	httpTimeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, errors.New("invalid HTTP_TIMEOUT format")
	}

	cfg := &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		BackendBaseURL: os.Getenv("BACKEND_BASE_URL"),
		BackendVersion: getEnv("BACKEND_API_VERSION", "v5"),
		SelfClientID:   os.Getenv("SELF_CLIENT_ID"),
		AccessToken:    os.Getenv("ACCESS_TOKEN"),
		SyncInterval:   syncInterval,
		HTTPTimeout:    httpTimeout,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        os.Getenv("LOG_FILE"),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.BackendBaseURL == "" {
		return nil, errors.New("BACKEND_BASE_URL is required")
	}
	if cfg.SelfClientID == "" {
		return nil, errors.New("SELF_CLIENT_ID is required")
	}
	if cfg.AccessToken == "" {
		return nil, errors.New("ACCESS_TOKEN is required")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
