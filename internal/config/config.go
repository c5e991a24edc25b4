// Package config defines the clipinsight configuration, loaded with
// viper from a YAML file with CLIPINSIGHT_* environment overrides.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete clipinsight configuration
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
}

// ProviderConfig points at the video/comment data provider
type ProviderConfig struct {
	// BaseURL is the data provider API root
	BaseURL string `mapstructure:"base_url"`
	// APIKey authenticates against the data provider
	APIKey string `mapstructure:"api_key"`
	// TimeoutSeconds bounds each individual provider request
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// LLMConfig points at the completion endpoint
type LLMConfig struct {
	// BaseURL is the OpenAI-compatible API root
	BaseURL string `mapstructure:"base_url"`
	// APIKey authenticates against the completion endpoint
	APIKey string `mapstructure:"api_key"`
	// Model is the default completion model
	Model string `mapstructure:"model"`
	// FastModel is used when a run requests fast mode
	FastModel string `mapstructure:"fast_model"`
	// MaxTokens caps the generated completion length
	MaxTokens int `mapstructure:"max_tokens"`
	// Temperature is the sampling temperature
	Temperature float64 `mapstructure:"temperature"`
	// StreamTimeoutSeconds bounds one whole streaming generation
	StreamTimeoutSeconds int `mapstructure:"stream_timeout_seconds"`
}

// PipelineConfig tunes the analysis pipelines
type PipelineConfig struct {
	// MaxComments is the record-count ceiling for comment collection
	MaxComments int `mapstructure:"max_comments"`
	// MaxPages is the page-count ceiling for comment collection
	MaxPages int `mapstructure:"max_pages"`
	// PageSize is how many comments to request per page
	PageSize int `mapstructure:"page_size"`
	// PageDelayMs is the pause between page fetches (upstream rate limits)
	PageDelayMs int `mapstructure:"page_delay_ms"`
	// RunTimeoutSeconds bounds one whole pipeline run (0 = no timeout)
	RunTimeoutSeconds int `mapstructure:"run_timeout_seconds"`
	// TopLocations is how many location entries the aggregator keeps
	TopLocations int `mapstructure:"top_locations"`
}

// CacheConfig controls result cache freshness
type CacheConfig struct {
	// WindowHours is how long a stored analysis stays fresh (default: 168, one week)
	WindowHours int `mapstructure:"window_hours"`
}

// RetryConfig tunes the client-side retry policy
type RetryConfig struct {
	// MaxRetries is the number of re-attempts after the first failure
	MaxRetries int `mapstructure:"max_retries"`
	// InitialDelayMs is the delay before the first retry
	InitialDelayMs int `mapstructure:"initial_delay_ms"`
	// MaxDelayMs caps the backoff delay
	MaxDelayMs int `mapstructure:"max_delay_ms"`
	// Multiplier is the backoff factor between attempts
	Multiplier float64 `mapstructure:"multiplier"`
}

// ServerConfig controls the HTTP server
type ServerConfig struct {
	// Addr is the listen address for `clipinsight serve`
	Addr string `mapstructure:"addr"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// Dir is where log files go; empty logs to stderr
	Dir string `mapstructure:"dir"`
}

// DatabaseConfig controls result persistence
type DatabaseConfig struct {
	// Path is the SQLite database file
	Path string `mapstructure:"path"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:        "https://api.tikhub.io",
			TimeoutSeconds: 30,
		},
		LLM: LLMConfig{
			BaseURL:              "https://api.openai.com/v1",
			Model:                "gpt-4o",
			FastModel:            "gpt-4o-mini",
			MaxTokens:            4000,
			Temperature:          0.7,
			StreamTimeoutSeconds: 180,
		},
		Pipeline: PipelineConfig{
			MaxComments:       100,
			MaxPages:          5,
			PageSize:          20,
			PageDelayMs:       200,
			RunTimeoutSeconds: 300,
			TopLocations:      10,
		},
		Cache: CacheConfig{
			WindowHours: 168,
		},
		Retry: RetryConfig{
			MaxRetries:     3,
			InitialDelayMs: 100,
			MaxDelayMs:     5000,
			Multiplier:     2,
		},
		Server: ServerConfig{
			Addr: ":8787",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Database: DatabaseConfig{
			Path: filepath.Join(DataDir(), "clipinsight.db"),
		},
	}
}

// SetDefaults registers all defaults with viper so they're available
// even without a config file
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("provider.base_url", defaults.Provider.BaseURL)
	viper.SetDefault("provider.api_key", defaults.Provider.APIKey)
	viper.SetDefault("provider.timeout_seconds", defaults.Provider.TimeoutSeconds)

	viper.SetDefault("llm.base_url", defaults.LLM.BaseURL)
	viper.SetDefault("llm.api_key", defaults.LLM.APIKey)
	viper.SetDefault("llm.model", defaults.LLM.Model)
	viper.SetDefault("llm.fast_model", defaults.LLM.FastModel)
	viper.SetDefault("llm.max_tokens", defaults.LLM.MaxTokens)
	viper.SetDefault("llm.temperature", defaults.LLM.Temperature)
	viper.SetDefault("llm.stream_timeout_seconds", defaults.LLM.StreamTimeoutSeconds)

	viper.SetDefault("pipeline.max_comments", defaults.Pipeline.MaxComments)
	viper.SetDefault("pipeline.max_pages", defaults.Pipeline.MaxPages)
	viper.SetDefault("pipeline.page_size", defaults.Pipeline.PageSize)
	viper.SetDefault("pipeline.page_delay_ms", defaults.Pipeline.PageDelayMs)
	viper.SetDefault("pipeline.run_timeout_seconds", defaults.Pipeline.RunTimeoutSeconds)
	viper.SetDefault("pipeline.top_locations", defaults.Pipeline.TopLocations)

	viper.SetDefault("cache.window_hours", defaults.Cache.WindowHours)

	viper.SetDefault("retry.max_retries", defaults.Retry.MaxRetries)
	viper.SetDefault("retry.initial_delay_ms", defaults.Retry.InitialDelayMs)
	viper.SetDefault("retry.max_delay_ms", defaults.Retry.MaxDelayMs)
	viper.SetDefault("retry.multiplier", defaults.Retry.Multiplier)

	viper.SetDefault("server.addr", defaults.Server.Addr)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	viper.SetDefault("database.path", defaults.Database.Path)
}

// Load unmarshals the configuration from viper and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the directory where the config file lives
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "clipinsight")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clipinsight"
	}
	return filepath.Join(home, ".config", "clipinsight")
}

// DataDir returns the directory for the database and logs
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "clipinsight")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clipinsight"
	}
	return filepath.Join(home, ".local", "share", "clipinsight")
}

// ProviderTimeout returns the per-request provider timeout as a Duration
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// StreamTimeout returns the streaming generation timeout as a Duration
func (c *Config) StreamTimeout() time.Duration {
	return time.Duration(c.LLM.StreamTimeoutSeconds) * time.Second
}

// RunTimeout returns the whole-run timeout as a Duration (0 = none)
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Pipeline.RunTimeoutSeconds) * time.Second
}

// PageDelay returns the inter-page pause as a Duration
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.Pipeline.PageDelayMs) * time.Millisecond
}

// CacheWindow returns the cache freshness window as a Duration
func (c *Config) CacheWindow() time.Duration {
	return time.Duration(c.Cache.WindowHours) * time.Hour
}
