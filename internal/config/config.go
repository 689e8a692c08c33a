package config

import (
	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field maps 1:1 to a documented env var.
type Config struct {
	// Server
	Port int    `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"` // development | production

	// Storage
	DataDir         string `mapstructure:"DATA_DIR"`
	FlushQueueSize  int    `mapstructure:"FLUSH_QUEUE_SIZE"`
	FlushMaxRetries int    `mapstructure:"FLUSH_MAX_RETRIES"`

	// Rate limiting
	RateLimit         int `mapstructure:"RATE_LIMIT"`
	RateWindowSeconds int `mapstructure:"RATE_WINDOW_SECONDS"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Sensible defaults for development
	viper.SetDefault("PORT", 8000)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DATA_DIR", "./data")
	viper.SetDefault("FLUSH_QUEUE_SIZE", 64)
	viper.SetDefault("FLUSH_MAX_RETRIES", 5)
	viper.SetDefault("RATE_LIMIT", 1000)
	viper.SetDefault("RATE_WINDOW_SECONDS", 60)

	// Optional .env file for local development — does not fail if missing
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
