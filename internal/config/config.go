package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config represents the aggregator's full configuration.
type Config struct {
	// Database configuration
	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	// Aggregator tick configuration
	Aggregator struct {
		PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
		IsolationLevel      string `mapstructure:"isolation_level"`
		BreakerOpenAfter    uint32 `mapstructure:"breaker_open_after"`
	} `mapstructure:"aggregator"`

	// Loader configuration
	Loader struct {
		// MaxBatchSize caps how many rows each loader query returns per
		// tick. Zero means unbounded.
		MaxBatchSize int `mapstructure:"max_batch_size"`
	} `mapstructure:"loader"`

	// Monitoring configuration
	Monitoring struct {
		MetricsPort int    `mapstructure:"metrics_port"`
		LogLevel    string `mapstructure:"log_level"`
	} `mapstructure:"monitoring"`
}

var (
	config *Config
	once   sync.Once
)

// LoadConfig loads the configuration from the specified directory,
// falling back to the defaults in setDefaults. Environment variables
// override only keys the config file itself sets, and are looked up
// under the key's full dotted path with the AGGREGATOR_ prefix (for
// example AGGREGATOR_DATABASE.HOST); with no config file, the defaults
// apply unchanged.
func LoadConfig(configPath string) (*Config, error) {
	var err error

	once.Do(func() {
		config = &Config{}

		// Set default values
		setDefaults()

		// Initialize viper
		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Add config path
		if configPath != "" {
			v.AddConfigPath(configPath)
		} else {
			v.AddConfigPath(".")
			v.AddConfigPath("./config")
			v.AddConfigPath("/etc/aggregator")
		}

		// Read environment variables
		v.AutomaticEnv()
		v.SetEnvPrefix("AGGREGATOR")

		// Read config file
		if err = v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				err = fmt.Errorf("failed to read config file: %w", err)
				return
			}
			// Config file not found, using defaults and environment variables
			err = nil
		}

		// Unmarshal config
		if err = v.Unmarshal(config); err != nil {
			err = fmt.Errorf("failed to unmarshal config: %w", err)
			return
		}
	})

	return config, err
}

// GetConfig returns the current configuration, loading it with defaults
// if it has not been loaded yet.
func GetConfig() *Config {
	if config == nil {
		_, err := LoadConfig("")
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	}
	return config
}

// SaveConfig saves the configuration to a file, for operators who want
// to capture the effective config (defaults + env overrides) to disk.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults sets default values for the configuration.
func setDefaults() {
	config.Database.Host = "localhost"
	config.Database.Port = 5432
	config.Database.User = "postgres"
	config.Database.Name = "aggregator"
	config.Database.SSLMode = "disable"

	config.Aggregator.PollIntervalSeconds = 5
	config.Aggregator.IsolationLevel = "serializable"
	config.Aggregator.BreakerOpenAfter = 5

	config.Monitoring.MetricsPort = 9090
	config.Monitoring.LogLevel = "info"
}

// InitLogger initializes the process logger based on the configured log
// level.
func InitLogger(cfg *Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	switch cfg.Monitoring.LogLevel {
	case "debug":
		logger, err = zap.NewDevelopment()
	case "info", "warn", "error":
		logger, err = zap.NewProduction()
	default:
		logger, err = zap.NewProduction()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}
