// Package config loads application configuration from config.yaml and
// environment variables via viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Credit   CreditConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	Path string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string // "text" (colored) or "json"
}

// CreditConfig controls the background delay scan.
type CreditConfig struct {
	ScanInterval time.Duration
	ScanEnabled  bool
}

// Load reads config.yaml (if present) plus environment variables and
// returns the merged configuration. Missing config file is not an error;
// defaults and env cover everything.
func Load(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetDefault("Server.Port", "8080")
	viper.SetDefault("Database.Path", "./data/splitsettle.db")
	viper.SetDefault("Log.Level", "info")
	viper.SetDefault("Log.Format", "text")
	viper.SetDefault("Credit.ScanInterval", "1h")
	viper.SetDefault("Credit.ScanEnabled", true)

	viper.SetEnvPrefix("SPLITSETTLE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Credit.ScanInterval <= 0 {
		return nil, fmt.Errorf("credit scan interval must be positive, got %s", cfg.Credit.ScanInterval)
	}

	return &cfg, nil
}
