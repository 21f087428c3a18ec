// Package config handles configuration loading and management for Ensemble.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Ensemble.
type Config struct {
	Anthropic     AnthropicConfig     `mapstructure:"anthropic"`
	Defaults      DefaultsConfig      `mapstructure:"defaults"`
	Orchestration OrchestrationConfig `mapstructure:"orchestration"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Retry         RetryConfig         `mapstructure:"retry"`
	TUI           TUIConfig           `mapstructure:"tui"`
	Debug         DebugConfig         `mapstructure:"debug"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
}

// DefaultsConfig holds default values for agent invocations.
type DefaultsConfig struct {
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// OrchestrationConfig holds run-level settings shared by every strategy.
type OrchestrationConfig struct {
	MaxIterations   int           `mapstructure:"max_iterations"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PreserveHistory bool          `mapstructure:"preserve_history"`
}

// RateLimitConfig holds provider rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	// Mode is "reject" or "wait".
	Mode string `mapstructure:"mode"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path is the SQLite database file. Empty selects the in-memory store.
	Path string `mapstructure:"path"`
}

// RetryConfig holds transient failure retry settings.
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// TUIConfig holds TUI display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// DebugConfig holds debug logging settings.
type DebugConfig struct {
	// LogPath enables the file-backed debug log when set.
	LogPath string `mapstructure:"log_path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.ensemble.yaml in current directory or parent)
// 3. User config (~/.config/ensemble/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides: every key maps to an ENSEMBLE_*
	// variable (dots become underscores), plus the provider's standard
	// ANTHROPIC_API_KEY.
	v.SetEnvPrefix("ENSEMBLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY", "ENSEMBLE_ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.use_bedrock", "ENSEMBLE_USE_BEDROCK")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("defaults.model", cfg.Defaults.Model)
	v.Set("defaults.max_tokens", cfg.Defaults.MaxTokens)
	v.Set("orchestration.max_iterations", cfg.Orchestration.MaxIterations)
	v.Set("orchestration.timeout", cfg.Orchestration.Timeout.String())
	v.Set("orchestration.preserve_history", cfg.Orchestration.PreserveHistory)
	v.Set("rate_limit.enabled", cfg.RateLimit.Enabled)
	v.Set("rate_limit.requests_per_second", cfg.RateLimit.RequestsPerSecond)
	v.Set("rate_limit.burst", cfg.RateLimit.Burst)
	v.Set("rate_limit.mode", cfg.RateLimit.Mode)
	v.Set("cache.enabled", cfg.Cache.Enabled)
	v.Set("cache.path", cfg.Cache.Path)
	v.Set("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.Set("retry.initial_backoff", cfg.Retry.InitialBackoff.String())
	v.Set("retry.max_backoff", cfg.Retry.MaxBackoff.String())
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())
	v.Set("debug.log_path", cfg.Debug.LogPath)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("defaults.model", "claude-sonnet-4-20250514")
	v.SetDefault("defaults.max_tokens", 4096)

	v.SetDefault("orchestration.max_iterations", 20)
	v.SetDefault("orchestration.timeout", "0s")
	v.SetDefault("orchestration.preserve_history", true)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 2.0)
	v.SetDefault("rate_limit.burst", 4)
	v.SetDefault("rate_limit.mode", "reject")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", "")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff", "500ms")
	v.SetDefault("retry.max_backoff", "10s")

	v.SetDefault("tui.refresh_rate", "100ms")

	v.SetDefault("debug.log_path", "")
}

// getUserConfigDir returns the XDG config directory for Ensemble.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ensemble")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "ensemble")
	}
	return filepath.Join(home, ".config", "ensemble")
}

// findProjectConfig searches for .ensemble.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".ensemble.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 4096,
		},
		Orchestration: OrchestrationConfig{
			MaxIterations:   20,
			PreserveHistory: true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2.0,
			Burst:             4,
			Mode:              "reject",
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     10 * time.Second,
		},
		TUI: TUIConfig{
			RefreshRate: 100 * time.Millisecond,
		},
	}
}
