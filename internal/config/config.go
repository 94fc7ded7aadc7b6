package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chew-z/bypass-proxy/internal/api"
	"github.com/chew-z/bypass-proxy/internal/router"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	APIKey          string        `mapstructure:"api_key"`
	RemoteBaseURL   string        `mapstructure:"remote_base_url"`
	LocalBaseURL    string        `mapstructure:"local_base_url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Debug           bool          `mapstructure:"debug"`
	Verbose         bool          `mapstructure:"verbose"`          // Enable terminal output (default: quiet, logs to file only)
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"` // 0 disables the timeout
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	Bypass          BypassConfig  `mapstructure:"bypass"`
}

// BypassConfig lists the models served by the local backend, per capability.
type BypassConfig struct {
	Chat       []string `mapstructure:"chat"`
	Embeddings []string `mapstructure:"embeddings"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		APIKey:        "",
		RemoteBaseURL: "https://openrouter.ai/api/v1",
		LocalBaseURL:  "http://localhost:11435",
		Host:          "127.0.0.1",
		Port:          11434,
		Bypass: BypassConfig{
			Chat: []string{
				"nomic-embed-text:latest",
				"gemma3:1b",
				"SmolLM2:135m",
				"deepseek-r1:1.5b",
			},
			Embeddings: []string{"nomic-embed-text:latest"},
		},
	}
}

// Load loads configuration with precedence: ENV vars > config file > defaults
func Load() (*Config, error) {
	v := viper.New()

	defaultCfg := DefaultConfig()
	v.SetDefault("api_key", defaultCfg.APIKey)
	v.SetDefault("remote_base_url", defaultCfg.RemoteBaseURL)
	v.SetDefault("local_base_url", defaultCfg.LocalBaseURL)
	v.SetDefault("host", defaultCfg.Host)
	v.SetDefault("port", defaultCfg.Port)
	v.SetDefault("debug", defaultCfg.Debug)
	v.SetDefault("verbose", defaultCfg.Verbose)
	v.SetDefault("upstream_timeout", defaultCfg.UpstreamTimeout)
	v.SetDefault("cors_origins", defaultCfg.CORSOrigins)
	v.SetDefault("bypass.chat", defaultCfg.Bypass.Chat)
	v.SetDefault("bypass.embeddings", defaultCfg.Bypass.Embeddings)

	v.SetConfigName("config")
	v.SetConfigType("json")

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("BYPASS")
	v.AutomaticEnv()

	_ = v.BindEnv("remote_base_url", "BYPASS_REMOTE_BASE_URL")
	_ = v.BindEnv("local_base_url", "BYPASS_LOCAL_BASE_URL")
	_ = v.BindEnv("host", "BYPASS_HOST")
	_ = v.BindEnv("port", "BYPASS_PORT")
	_ = v.BindEnv("debug", "BYPASS_DEBUG")
	_ = v.BindEnv("upstream_timeout", "BYPASS_UPSTREAM_TIMEOUT")
	_ = v.BindEnv("cors_origins", "BYPASS_CORS_ORIGINS")
	_ = v.BindEnv("bypass.chat", "BYPASS_CHAT_MODELS")
	_ = v.BindEnv("bypass.embeddings", "BYPASS_EMBEDDING_MODELS")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Get API key from environment variables (highest precedence)
	if apiKey := getAPIKeyFromEnv(); apiKey != "" {
		cfg.APIKey = apiKey
	}

	return &cfg, nil
}

// Save saves the configuration to file
func Save(cfg *Config) error {
	configDir, err := getConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(configDir)

	v.Set("api_key", cfg.APIKey)
	v.Set("remote_base_url", cfg.RemoteBaseURL)
	v.Set("local_base_url", cfg.LocalBaseURL)
	v.Set("host", cfg.Host)
	v.Set("port", cfg.Port)
	v.Set("debug", cfg.Debug)
	v.Set("upstream_timeout", cfg.UpstreamTimeout.String())
	v.Set("cors_origins", cfg.CORSOrigins)
	v.Set("bypass.chat", cfg.Bypass.Chat)
	v.Set("bypass.embeddings", cfg.Bypass.Embeddings)

	configPath := filepath.Join(configDir, "config.json")
	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate performs sanity checks on the configuration.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be a valid TCP port, got %d", c.Port)
	}
	if err := validateBaseURL("remote_base_url", c.RemoteBaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("local_base_url", c.LocalBaseURL); err != nil {
		return err
	}
	if c.UpstreamTimeout < 0 {
		return fmt.Errorf("upstream_timeout must not be negative, got %s", c.UpstreamTimeout)
	}
	return nil
}

// BypassTable builds the immutable routing table from the bypass lists.
func (c *Config) BypassTable() router.BypassTable {
	return router.NewBypassTable(map[api.Capability][]string{
		api.Chat:       c.Bypass.Chat,
		api.Embeddings: c.Bypass.Embeddings,
	})
}

func validateBaseURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", key, raw)
	}
	return nil
}

// getConfigDir returns the configuration directory path (XDG-compliant)
func getConfigDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "bypass-proxy"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bypass-proxy"), nil
}

// getAPIKeyFromEnv checks multiple environment variable names for the remote API key
func getAPIKeyFromEnv() string {
	envVars := []string{
		"BYPASS_API_KEY",
		"OPENROUTER_API_KEY",
	}

	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			return value
		}
	}

	return ""
}
