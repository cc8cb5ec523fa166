package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`

	ConnectionsFile string `mapstructure:"connections_file"`
	SinksFile       string `mapstructure:"sinks_file"`

	SweepIntervalSeconds      int64         `mapstructure:"sweep_interval_seconds"`
	RetrySweepIntervalSeconds int64         `mapstructure:"retry_sweep_interval_seconds"`
	SweepBatchSize            int           `mapstructure:"sweep_batch_size"`
	QueueMaxRetries           int           `mapstructure:"queue_max_retries"`
	SweepInterval             time.Duration `mapstructure:"-"`
	RetrySweepInterval        time.Duration `mapstructure:"-"`

	PublishAttempts       int           `mapstructure:"publish_attempts"`
	PublishBackoffSeconds int64         `mapstructure:"publish_backoff_seconds"`
	PublishBackoff        time.Duration `mapstructure:"-"`

	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "inklet-syndicator")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/syndicator.db")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("connections_file", "./configs/connections.yaml")
	v.SetDefault("sinks_file", "")
	v.SetDefault("sweep_interval_seconds", 60)
	v.SetDefault("retry_sweep_interval_seconds", 300)
	v.SetDefault("sweep_batch_size", 20)
	v.SetDefault("queue_max_retries", 3)
	v.SetDefault("publish_attempts", 3)
	v.SetDefault("publish_backoff_seconds", 2)
	v.SetDefault("http_timeout_seconds", 15)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.SweepIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid sweep_interval_seconds (must be positive seconds)")
	}
	if cfg.RetrySweepIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid retry_sweep_interval_seconds (must be positive seconds)")
	}
	if cfg.SweepBatchSize <= 0 {
		return nil, fmt.Errorf("invalid sweep_batch_size (must be positive)")
	}
	if cfg.QueueMaxRetries < 0 {
		return nil, fmt.Errorf("invalid queue_max_retries (must not be negative)")
	}
	if cfg.PublishAttempts <= 0 {
		return nil, fmt.Errorf("invalid publish_attempts (must be positive)")
	}
	if cfg.PublishBackoffSeconds < 0 {
		return nil, fmt.Errorf("invalid publish_backoff_seconds (must not be negative)")
	}
	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}

	cfg.SweepInterval = time.Duration(cfg.SweepIntervalSeconds) * time.Second
	cfg.RetrySweepInterval = time.Duration(cfg.RetrySweepIntervalSeconds) * time.Second
	cfg.PublishBackoff = time.Duration(cfg.PublishBackoffSeconds) * time.Second
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	return &cfg, nil
}
