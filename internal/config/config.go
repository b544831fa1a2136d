package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"relana/internal"
	"relana/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Log    LogConfig
	Engine EngineConfig
	Report ReportConfig
	Server ServerConfig
}

// LogConfig holds logging settings
type LogConfig struct {
	Level internal.LogLevel
}

// EngineConfig holds evaluation settings
type EngineConfig struct {
	// ParallelDepth is the recursion depth up to which both branches of a
	// conditioning step are evaluated concurrently.
	ParallelDepth int
	// MaxWorkers bounds the outputs evaluated at the same time.
	MaxWorkers int
}

// ReportConfig holds rendering settings
type ReportConfig struct {
	Decimals int
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Addr         string
	MaxBodyBytes int64
}

const (
	defaultMaxWorkers = 4
	defaultDecimals   = 12
	defaultAddr       = ":8080"
	defaultMaxBody    = 1 << 20
)

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: internal.LogLevelInfo},
		Engine: EngineConfig{MaxWorkers: defaultMaxWorkers},
		Report: ReportConfig{Decimals: defaultDecimals},
		Server: ServerConfig{Addr: defaultAddr, MaxBodyBytes: defaultMaxBody},
	}
}

// Load reads an optional .env file, then environment variables, and validates the result
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, errors.Wrapf(errors.ConfigInvalid(err.Error()), "failed to read %s", f)
		}
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables alone
func FromEnv() (*Config, error) {
	cfg := Default()

	if s := os.Getenv("LOG_LEVEL"); s != "" {
		level, ok := internal.ParseLogLevel(s)
		if !ok {
			return nil, errors.ConfigInvalid(fmt.Sprintf("LOG_LEVEL %q is none of error, warn, info, debug, trace", s))
		}
		cfg.Log.Level = level
	}

	var err error
	if cfg.Engine.ParallelDepth, err = getEnvIntOrDefault("RELANA_PARALLEL_DEPTH", 0); err != nil {
		return nil, err
	}
	if cfg.Engine.MaxWorkers, err = getEnvIntOrDefault("RELANA_MAX_WORKERS", defaultMaxWorkers); err != nil {
		return nil, err
	}
	if cfg.Report.Decimals, err = getEnvIntOrDefault("RELANA_DECIMALS", defaultDecimals); err != nil {
		return nil, err
	}
	cfg.Server.Addr = getEnvOrDefault("RELANA_HTTP_ADDR", defaultAddr)
	maxBody, err := getEnvIntOrDefault("RELANA_HTTP_MAX_BODY", defaultMaxBody)
	if err != nil {
		return nil, err
	}
	cfg.Server.MaxBodyBytes = int64(maxBody)

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validateConfig(config *Config) error {
	if config.Engine.ParallelDepth < 0 {
		return errors.ConfigInvalid("RELANA_PARALLEL_DEPTH must not be negative")
	}
	if config.Engine.MaxWorkers < 1 {
		return errors.ConfigInvalid("RELANA_MAX_WORKERS must be at least 1")
	}
	if config.Report.Decimals < 1 || config.Report.Decimals > 64 {
		return errors.ConfigInvalid("RELANA_DECIMALS must be between 1 and 64")
	}
	if config.Server.Addr == "" {
		return errors.ConfigInvalid("RELANA_HTTP_ADDR is required")
	}
	if config.Server.MaxBodyBytes < 1 {
		return errors.ConfigInvalid("RELANA_HTTP_MAX_BODY must be positive")
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

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s=%q is not an integer", key, value))
	}
	return intValue, nil
}
