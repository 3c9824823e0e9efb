package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the Transis tool configuration
type Config struct {
	Backend string       `mapstructure:"backend"`
	Redis   RedisConfig  `mapstructure:"redis"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"`
}

// RedisConfig represents redis backend configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SQLiteConfig represents sqlite backend configuration
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// loadConfig loads the configuration from transis.yml or transis.yaml,
// with TRANSIS_* environment variables taking precedence over the file.
func loadConfig() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("backend", "memory")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("sqlite.path", ":memory:")

	// Set config name and paths
	v.SetConfigName("transis")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Enable environment variable support
	v.SetEnvPrefix("TRANSIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
