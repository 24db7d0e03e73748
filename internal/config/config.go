package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Adjustment AdjustmentConfig
	Output     OutputConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds the optional run-repository connection. Persistence is
// only exercised when URL is set.
type DatabaseConfig struct {
	URL string
}

// AdjustmentConfig holds the engine thresholds
type AdjustmentConfig struct {
	Alpha         float64
	MinRandomRuns int
	MinPathwayObs int
}

// OutputConfig holds artifact destinations
type OutputConfig struct {
	Dir string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Adjustment: AdjustmentConfig{
			Alpha:         getEnvFloatOrDefault("ADJUST_ALPHA", 0.05),
			MinRandomRuns: getEnvIntOrDefault("ADJUST_MIN_RANDOM_RUNS", 100),
			MinPathwayObs: getEnvIntOrDefault("ADJUST_MIN_PATHWAY_OBS", 10),
		},
		Output: OutputConfig{
			Dir: getEnvOrDefault("OUTPUT_DIR", "."),
		},
	}

	if cfg.Adjustment.Alpha <= 0 || cfg.Adjustment.Alpha >= 1 {
		return nil, fmt.Errorf("ADJUST_ALPHA must be in (0, 1), got %v", cfg.Adjustment.Alpha)
	}
	if cfg.Adjustment.MinRandomRuns < 1 {
		return nil, fmt.Errorf("ADJUST_MIN_RANDOM_RUNS must be >= 1, got %d", cfg.Adjustment.MinRandomRuns)
	}
	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
