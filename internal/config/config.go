// Package config provides configuration management functionality.
//
// This package handles loading the simulator's default run configuration from
// environment variables (and an optional .env file). The engine itself never
// reads the environment directly — internal/config is the one seam where
// ambient configuration enters the program, and everything downstream
// receives an explicit riskmodel.Config value.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aristath/riskforecast/internal/riskmodel"
	"github.com/joho/godotenv"
)

// Config holds process-level configuration for the simulate CLI.
type Config struct {
	LogLevel    string // debug, info, warn, error
	InputPath   string // path to the JSON dataset consumed by cmd/simulate
	DefaultSeed *int64 // optional; nil means "pick a random seed and report it"
	Defaults    riskmodel.Config
}

// Load reads configuration from environment variables.
//
// Load does not range-check the simulation defaults; riskmodel.Simulate
// checks them and returns a *riskmodel.ConfigurationError for out-of-range
// values. Integer and boolean variables that fail to parse fall back to the
// default silently; an unparseable RISKSIM_SEED or RISKSIM_DATA_DATE is an
// error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	defaults := riskmodel.DefaultConfig()

	if freq := getEnv("RISKSIM_FREQUENCY", ""); freq != "" {
		defaults.Frequency = riskmodel.Frequency(freq)
	}
	defaults.HorizonMonths = getEnvAsInt("RISKSIM_HORIZON_MONTHS", defaults.HorizonMonths)
	defaults.NIterations = getEnvAsInt("RISKSIM_N_ITERATIONS", defaults.NIterations)
	defaults.EnableCorrelation = getEnvAsBool("RISKSIM_ENABLE_CORRELATION", defaults.EnableCorrelation)
	if method := getEnv("RISKSIM_CORRELATION_METHOD", ""); method != "" {
		defaults.CorrelationMethod = riskmodel.CorrelationMethod(method)
	}

	cfg := &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		InputPath: getEnv("RISKSIM_INPUT", "testdata/example_dataset.json"),
		Defaults:  defaults,
	}

	if seedStr := os.Getenv("RISKSIM_SEED"); seedStr != "" {
		seed, err := strconv.ParseInt(seedStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RISKSIM_SEED %q: %w", seedStr, err)
		}
		cfg.DefaultSeed = &seed
		cfg.Defaults.Seed = &seed
	}

	if dataDateStr := os.Getenv("RISKSIM_DATA_DATE"); dataDateStr != "" {
		dataDate, err := time.Parse("2006-01-02", dataDateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid RISKSIM_DATA_DATE %q: %w", dataDateStr, err)
		}
		cfg.Defaults.DataDate = dataDate
	}

	return cfg, nil
}

// getEnv retrieves an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean with a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
