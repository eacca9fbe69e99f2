package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	DatabaseURL     string
	APIPort         string
	DefaultPageSize int
	LoaderBatchSize int
	LogLevel        string
	LogFormat       string
}

func New() (*Config, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	cfg := &Config{
		DatabaseURL:     databaseURL,
		APIPort:         getEnv("API_PORT", "8080"),
		DefaultPageSize: 3,
		LoaderBatchSize: 500,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "console"),
	}

	var err error
	cfg.DefaultPageSize, err = getEnvAsInt("DEFAULT_PAGE_SIZE", cfg.DefaultPageSize)
	if err != nil {
		return nil, err
	}

	cfg.LoaderBatchSize, err = getEnvAsInt("LOADER_BATCH_SIZE", cfg.LoaderBatchSize)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(name, defaultValue string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", name, err)
	}

	return value, nil
}
