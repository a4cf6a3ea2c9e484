package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tpoisot/IntroScientificComputing/app"
	"github.com/tpoisot/IntroScientificComputing/domain/occupancy"
	"github.com/tpoisot/IntroScientificComputing/domain/run"
	"github.com/tpoisot/IntroScientificComputing/internal"
	"github.com/tpoisot/IntroScientificComputing/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Estimator run.Settings
	Server    ServerConfig
	Database  DatabaseConfig
	LogLevel  string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DatabaseConfig holds database connection settings. An empty URL keeps runs
// in memory.
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether runs are persisted to Postgres
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	estimator, err := loadEstimatorSettings()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load estimator configuration")
	}

	config := &Config{
		Estimator: *estimator,
		Server:    *loadServerConfig(),
		Database:  DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadEstimatorSettings() (*run.Settings, error) {
	samples, err := getEnvInt("ABC_SAMPLES", app.DefaultSamples)
	if err != nil {
		return nil, err
	}
	threshold, err := getEnvFloat("ABC_THRESHOLD", app.DefaultThreshold)
	if err != nil {
		return nil, err
	}
	steps, err := getEnvInt("ABC_STEPS", occupancy.DefaultSteps)
	if err != nil {
		return nil, err
	}
	seed, err := getEnvUint("ABC_SEED", app.DefaultSeed)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvInt("ABC_WORKERS", 0)
	if err != nil {
		return nil, err
	}

	return &run.Settings{
		Samples:    samples,
		Threshold:  threshold,
		Steps:      steps,
		Seed:       seed,
		Workers:    workers,
		Statistics: splitList(os.Getenv("ABC_STATISTICS")),
		Distance:   os.Getenv("ABC_DISTANCE"),
		PriorE:     os.Getenv("ABC_PRIOR_E"),
		PriorC:     os.Getenv("ABC_PRIOR_C"),
		PriorM:     os.Getenv("ABC_PRIOR_M"),
		Empirical:  os.Getenv("ABC_EMPIRICAL"),
	}, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

// Validate resolves the estimator settings once so a bad prior or statistic
// name fails at startup rather than on the first request
func (c *Config) Validate() error {
	if _, err := app.EstimatorConfigFromSettings(c.Estimator); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if c.Server.Port == "" {
		return errors.ConfigInvalid("PORT must not be empty")
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("GIN_MODE %q is not one of debug, release, test", c.Server.GinMode))
	}
	if _, ok := internal.ParseLogLevel(c.LogLevel); !ok {
		return errors.ConfigInvalid(fmt.Sprintf("LOG_LEVEL %q is not a known level", c.LogLevel))
	}
	return nil
}

// EstimatorConfig resolves the estimator settings
func (c *Config) EstimatorConfig() (app.EstimatorConfig, error) {
	cfg, err := app.EstimatorConfigFromSettings(c.Estimator)
	if err != nil {
		return app.EstimatorConfig{}, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return cfg, nil
}

// Logger builds the logger for the configured level
func (c *Config) Logger() *internal.Logger {
	level, ok := internal.ParseLogLevel(c.LogLevel)
	if !ok {
		level = internal.LogLevelInfo
	}
	return internal.NewLogger(level)
}

// Helper functions for environment variable parsing. Unlike the string
// helper, numeric ones reject values that do not parse.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s=%q is not an integer", key, value))
	}
	return intValue, nil
}

func getEnvUint(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	uintValue, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s=%q is not an unsigned integer", key, value))
	}
	return uintValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s=%q is not a number", key, value))
	}
	return floatValue, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
