package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"anastat/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Engine   EngineConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// EngineConfig holds defaults for the analysis engines. Per-request
// options override these.
type EngineConfig struct {
	DefaultSeed       int64
	BootstrapSamples  int
	PermutationCount  int
	ConfidenceLevel   float64
	MaxParallel       int
	OptimizerStarts   int
	MaxOptimizerIters int
}

// Load reads configuration from the environment, consulting a .env file
// when one is present, and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Database: loadDatabaseConfig(),
		Server:   loadServerConfig(),
		Engine:   loadEngineConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnvOrDefault("DATABASE_URL", ""),
		MaxOpenConns:    getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDurationOrDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		RequestTimeout:  getEnvDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultSeed:       int64(getEnvIntOrDefault("DEFAULT_SEED", 42)),
		BootstrapSamples:  getEnvIntOrDefault("BOOTSTRAP_SAMPLES", 1000),
		PermutationCount:  getEnvIntOrDefault("PERMUTATION_COUNT", 1000),
		ConfidenceLevel:   getEnvFloatOrDefault("CONFIDENCE_LEVEL", 0.95),
		MaxParallel:       getEnvIntOrDefault("MAX_PARALLEL", 4),
		OptimizerStarts:   getEnvIntOrDefault("OPTIMIZER_STARTS", 10),
		MaxOptimizerIters: getEnvIntOrDefault("MAX_OPTIMIZER_ITERS", 200),
	}
}

func validateConfig(config *Config) error {
	if config.Engine.BootstrapSamples < 1 {
		return errors.ConfigInvalid("BOOTSTRAP_SAMPLES must be positive")
	}
	if config.Engine.PermutationCount < 1 {
		return errors.ConfigInvalid("PERMUTATION_COUNT must be positive")
	}
	if config.Engine.ConfidenceLevel <= 0 || config.Engine.ConfidenceLevel >= 1 {
		return errors.ConfigInvalid("CONFIDENCE_LEVEL must be in (0, 1)")
	}
	if config.Engine.MaxParallel < 1 {
		return errors.ConfigInvalid("MAX_PARALLEL must be positive")
	}
	return nil
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
