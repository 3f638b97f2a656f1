// Package common provides shared utilities for marketstate
package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
)

// Provider names accepted in [source] providers.
const (
	ProviderEastmoney       = "eastmoney"
	ProviderEastmoneyMirror = "eastmoney_mirror"
	ProviderSina            = "sina"
)

// KnownProviders lists every provider the binary can build, in default rank order.
var KnownProviders = []string{ProviderEastmoney, ProviderEastmoneyMirror, ProviderSina}

// Config holds all configuration for marketstate
type Config struct {
	Environment  string        `toml:"environment"`
	Timezone     string        `toml:"timezone"`      // Market timezone for meta.timestamp
	DefaultScope string        `toml:"default_scope"` // Scope used when the CLI omits one
	Source       SourceConfig  `toml:"source"`
	Clients      ClientsConfig `toml:"clients"`
	Limits       LimitsConfig  `toml:"limits"`
	Logging      LoggingConfig `toml:"logging"`
}

// SourceConfig holds the ranked provider list
type SourceConfig struct {
	Providers []string `toml:"providers"`
}

// ClientsConfig holds per-provider client configurations
type ClientsConfig struct {
	Eastmoney       ProviderConfig `toml:"eastmoney"`
	EastmoneyMirror ProviderConfig `toml:"eastmoney_mirror"`
	Sina            ProviderConfig `toml:"sina"`
}

// ProviderConfig holds snapshot provider configuration
type ProviderConfig struct {
	BaseURL   string `toml:"base_url"`
	Timeout   string `toml:"timeout"`
	RateLimit int    `toml:"rate_limit"` // pages per second
	PageSize  int    `toml:"page_size"`
	MaxPages  int    `toml:"max_pages"`
}

// GetTimeout parses and returns the per-request timeout
func (c *ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// Provider returns the client configuration for a named provider.
func (c *ClientsConfig) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case ProviderEastmoney:
		return c.Eastmoney, true
	case ProviderEastmoneyMirror:
		return c.EastmoneyMirror, true
	case ProviderSina:
		return c.Sina, true
	}
	return ProviderConfig{}, false
}

// LimitsConfig holds the approximate daily limit-move thresholds, in percent,
// per instrument class. They approximate exchange rules and are not exact.
type LimitsConfig struct {
	Main    float64 `toml:"main"`
	ChiNext float64 `toml:"chinext"`
	Star    float64 `toml:"star"`
	BSE     float64 `toml:"bse"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// envOverrides are read from the process environment (and .env) after the
// config files have been merged.
type envOverrides struct {
	Environment string `envconfig:"MARKETSTATE_ENV"`
	LogLevel    string `envconfig:"MARKETSTATE_LOG_LEVEL"`
	Timezone    string `envconfig:"MARKETSTATE_TIMEZONE"`
	Providers   string `envconfig:"MARKETSTATE_PROVIDERS"`
	Timeout     string `envconfig:"MARKETSTATE_TIMEOUT"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:  "development",
		Timezone:     "Asia/Shanghai",
		DefaultScope: "hs_a",
		Source: SourceConfig{
			Providers: []string{ProviderEastmoney, ProviderEastmoneyMirror, ProviderSina},
		},
		Clients: ClientsConfig{
			Eastmoney: ProviderConfig{
				BaseURL:   "https://push2.eastmoney.com",
				Timeout:   "15s",
				RateLimit: 5,
				PageSize:  100,
				MaxPages:  100,
			},
			EastmoneyMirror: ProviderConfig{
				BaseURL:   "https://82.push2.eastmoney.com",
				Timeout:   "15s",
				RateLimit: 5,
				PageSize:  100,
				MaxPages:  100,
			},
			Sina: ProviderConfig{
				BaseURL:   "https://vip.stock.finance.sina.com.cn",
				Timeout:   "15s",
				RateLimit: 3,
				PageSize:  100,
				MaxPages:  100,
			},
		},
		Limits: LimitsConfig{
			Main:    9.8,
			ChiNext: 19.8,
			Star:    19.8,
			BSE:     29.8,
		},
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "console",
			Outputs:    []string{"console"},
			FilePath:   "./logs/marketstate.log",
			MaxSizeMB:  20,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if env.Environment != "" {
		config.Environment = env.Environment
	}
	if env.LogLevel != "" {
		config.Logging.Level = env.LogLevel
	}
	if env.Timezone != "" {
		config.Timezone = env.Timezone
	}
	if env.Providers != "" {
		var providers []string
		for _, p := range strings.Split(env.Providers, ",") {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				providers = append(providers, p)
			}
		}
		config.Source.Providers = providers
	}
	if env.Timeout != "" {
		config.Clients.Eastmoney.Timeout = env.Timeout
		config.Clients.EastmoneyMirror.Timeout = env.Timeout
		config.Clients.Sina.Timeout = env.Timeout
	}
	return nil
}

// Validate checks the merged configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.Source.Providers) == 0 {
		return &ConfigError{Field: "source.providers", Message: "no providers configured"}
	}
	seen := make(map[string]bool, len(c.Source.Providers))
	for _, p := range c.Source.Providers {
		if _, ok := c.Clients.Provider(p); !ok {
			return &ConfigError{Field: "source.providers", Message: fmt.Sprintf("unknown provider: %s", p)}
		}
		if seen[p] {
			return &ConfigError{Field: "source.providers", Message: fmt.Sprintf("duplicate provider: %s", p)}
		}
		seen[p] = true
	}
	thresholds := []struct {
		field string
		value float64
	}{
		{"limits.main", c.Limits.Main},
		{"limits.chinext", c.Limits.ChiNext},
		{"limits.star", c.Limits.Star},
		{"limits.bse", c.Limits.BSE},
	}
	for _, t := range thresholds {
		if t.value <= 0 {
			return &ConfigError{Field: t.field, Message: fmt.Sprintf("%s must be positive, got %v", t.field, t.value)}
		}
	}
	return nil
}

// Location returns the configured market timezone. A fixed UTC+8 zone is used
// when tzdata is unavailable (e.g., minimal container).
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || c.Timezone == "" {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}
