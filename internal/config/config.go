package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from flags, environment and .env files.
type Config struct {
	AppName  string `mapstructure:"app_name" validate:"required"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`

	BaseURL        string        `mapstructure:"e164_base_url" validate:"required,url"`
	APIKey         string        `mapstructure:"e164_api_key"`
	UserAgent      string        `mapstructure:"e164_user_agent"`
	Referer        string        `mapstructure:"e164_referer" validate:"omitempty,url"`
	TimeoutSeconds int64         `mapstructure:"e164_timeout_seconds" validate:"gt=0"`
	Timeout        time.Duration `mapstructure:"-"`
	DefaultRegion  string        `mapstructure:"default_region" validate:"omitempty,len=2,alpha"`

	PublishersFile string `mapstructure:"publishers_file"`

	StorageType            string        `mapstructure:"storage_type" validate:"oneof=none disabled bbolt"`
	BBoltPath              string        `mapstructure:"bbolt_path" validate:"required_if=StorageType bbolt"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds" validate:"gt=0"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds" validate:"gt=0"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"log-level":       "log_level",
	"base-url":        "e164_base_url",
	"api-key":         "e164_api_key",
	"timeout":         "e164_timeout_seconds",
	"region":          "default_region",
	"publishers-file": "publishers_file",
	"storage":         "storage_type",
	"bbolt-path":      "bbolt_path",
}

// RegisterFlags declares the flags Load understands on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("base-url", "", "lookup API base URL")
	fs.String("api-key", "", "bearer token for deployments that require one")
	fs.Int64("timeout", 0, "request timeout in seconds")
	fs.String("region", "", "ISO 3166 region used to expand national numbers (e.g. US)")
	fs.String("publishers-file", "", "YAML/JSON file declaring lookup event publishers")
	fs.String("storage", "", "journal backend (none, bbolt)")
	fs.String("bbolt-path", "", "journal database path")
}

// Load reads configuration from environment variables, .env files and flags.
// fs may be nil; only flags that were set override other sources.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "e164")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("e164_base_url", "https://e164.com/")
	v.SetDefault("e164_api_key", "")
	v.SetDefault("e164_user_agent", "e164-go-sdk/1.0 (Go)")
	v.SetDefault("e164_referer", "https://www.e164.com/")
	v.SetDefault("e164_timeout_seconds", 15)
	v.SetDefault("default_region", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("storage_type", "none")
	v.SetDefault("bbolt_path", "./data/journal.db")
	v.SetDefault("storage_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}
