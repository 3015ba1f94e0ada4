package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the application.
// Market definitions (tickers, spread pairs, windows) live in the
// marketconfig YAML file, not here.
type Config struct {
	Env string // development, staging, production

	// Output directories
	DataDir  string
	BriefDir string
	ChartDir string

	// Path to the market definition YAML
	MarketConfig string

	// External APIs
	FredAPIKey string

	// HTTP
	HTTPTimeout time.Duration
	MaxRetries  int

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, with a .env
// fallback. Only this function calls os.Getenv.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env:          getEnv("ENV", "development"),
		DataDir:      getEnv("DATA_DIR", "data"),
		BriefDir:     getEnv("BRIEF_DIR", "briefs"),
		ChartDir:     getEnv("CHART_DIR", "charts"),
		MarketConfig: getEnv("MARKET_CONFIG", "config/market.yaml"),
		FredAPIKey:   getEnv("FRED_API_KEY", ""),
		HTTPTimeout:  getEnvAsDuration("HTTP_TIMEOUT", "60s"),
		MaxRetries:   getEnvAsInt("HTTP_MAX_RETRIES", 3),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR must not be empty")
	}
	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
