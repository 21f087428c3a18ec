package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ensembleai/ensemble/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Ensemble configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/ensemble/config.yaml
Project-specific overrides can be placed in .ensemble.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("defaults.model: %s\n", cfg.Defaults.Model)
	fmt.Printf("defaults.max_tokens: %d\n", cfg.Defaults.MaxTokens)
	fmt.Printf("orchestration.max_iterations: %d\n", cfg.Orchestration.MaxIterations)
	fmt.Printf("orchestration.timeout: %s\n", cfg.Orchestration.Timeout)
	fmt.Printf("orchestration.preserve_history: %t\n", cfg.Orchestration.PreserveHistory)
	fmt.Printf("rate_limit.enabled: %t\n", cfg.RateLimit.Enabled)
	fmt.Printf("rate_limit.requests_per_second: %g\n", cfg.RateLimit.RequestsPerSecond)
	fmt.Printf("rate_limit.burst: %d\n", cfg.RateLimit.Burst)
	fmt.Printf("rate_limit.mode: %s\n", cfg.RateLimit.Mode)
	fmt.Printf("cache.enabled: %t\n", cfg.Cache.Enabled)
	fmt.Printf("cache.path: %s\n", cfg.Cache.Path)
	fmt.Printf("retry.max_attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("retry.initial_backoff: %s\n", cfg.Retry.InitialBackoff)
	fmt.Printf("retry.max_backoff: %s\n", cfg.Retry.MaxBackoff)
	fmt.Printf("tui.refresh_rate: %s\n", cfg.TUI.RefreshRate)
	fmt.Printf("debug.log_path: %s\n", cfg.Debug.LogPath)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue returns the string form of a configuration key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "defaults.model":
		return cfg.Defaults.Model, nil
	case "defaults.max_tokens":
		return strconv.Itoa(cfg.Defaults.MaxTokens), nil
	case "orchestration.max_iterations":
		return strconv.Itoa(cfg.Orchestration.MaxIterations), nil
	case "orchestration.timeout":
		return cfg.Orchestration.Timeout.String(), nil
	case "orchestration.preserve_history":
		return strconv.FormatBool(cfg.Orchestration.PreserveHistory), nil
	case "rate_limit.enabled":
		return strconv.FormatBool(cfg.RateLimit.Enabled), nil
	case "rate_limit.requests_per_second":
		return strconv.FormatFloat(cfg.RateLimit.RequestsPerSecond, 'g', -1, 64), nil
	case "rate_limit.burst":
		return strconv.Itoa(cfg.RateLimit.Burst), nil
	case "rate_limit.mode":
		return cfg.RateLimit.Mode, nil
	case "cache.enabled":
		return strconv.FormatBool(cfg.Cache.Enabled), nil
	case "cache.path":
		return cfg.Cache.Path, nil
	case "retry.max_attempts":
		return strconv.Itoa(cfg.Retry.MaxAttempts), nil
	case "retry.initial_backoff":
		return cfg.Retry.InitialBackoff.String(), nil
	case "retry.max_backoff":
		return cfg.Retry.MaxBackoff.String(), nil
	case "tui.refresh_rate":
		return cfg.TUI.RefreshRate.String(), nil
	case "debug.log_path":
		return cfg.Debug.LogPath, nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// setConfigValue parses and assigns a configuration value.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "anthropic.api_key":
		if err := config.ValidateAPIKey(value); err != nil {
			return err
		}
		cfg.Anthropic.APIKey = value
	case "anthropic.use_bedrock":
		return setBool(&cfg.Anthropic.UseBedrock, value)
	case "defaults.model":
		cfg.Defaults.Model = value
	case "defaults.max_tokens":
		return setInt(&cfg.Defaults.MaxTokens, value)
	case "orchestration.max_iterations":
		return setInt(&cfg.Orchestration.MaxIterations, value)
	case "orchestration.timeout":
		return setDuration(&cfg.Orchestration.Timeout, value)
	case "orchestration.preserve_history":
		return setBool(&cfg.Orchestration.PreserveHistory, value)
	case "rate_limit.enabled":
		return setBool(&cfg.RateLimit.Enabled, value)
	case "rate_limit.requests_per_second":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		cfg.RateLimit.RequestsPerSecond = f
	case "rate_limit.burst":
		return setInt(&cfg.RateLimit.Burst, value)
	case "rate_limit.mode":
		if value != "reject" && value != "wait" {
			return fmt.Errorf("rate_limit.mode must be 'reject' or 'wait'")
		}
		cfg.RateLimit.Mode = value
	case "cache.enabled":
		return setBool(&cfg.Cache.Enabled, value)
	case "cache.path":
		cfg.Cache.Path = value
	case "retry.max_attempts":
		return setInt(&cfg.Retry.MaxAttempts, value)
	case "retry.initial_backoff":
		return setDuration(&cfg.Retry.InitialBackoff, value)
	case "retry.max_backoff":
		return setDuration(&cfg.Retry.MaxBackoff, value)
	case "tui.refresh_rate":
		return setDuration(&cfg.TUI.RefreshRate, value)
	case "debug.log_path":
		cfg.Debug.LogPath = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setBool(dst *bool, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean: %s", value)
	}
	*dst = b
	return nil
}

func setInt(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %s", value)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %s", value)
	}
	*dst = d
	return nil
}
