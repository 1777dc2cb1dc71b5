// Package config loads service configuration from file and environment.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the rulescope service.
type Config struct {
	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	Index struct {
		// Path is the JSON rule index the service loads on startup.
		Path string `mapstructure:"path"`
		// UpstreamAPIURL is the commits endpoint the freshness check polls.
		UpstreamAPIURL   string `mapstructure:"upstream_api_url"`
		FreshnessEnabled bool   `mapstructure:"freshness_enabled"`
		FreshnessTimeout int    `mapstructure:"freshness_timeout"` // seconds
	} `mapstructure:"index"`

	UI struct {
		PageSize       int     `mapstructure:"page_size"`
		PageIncrement  int     `mapstructure:"page_increment"`
		HighlightClear int     `mapstructure:"highlight_clear"` // seconds
		ZoomMin        float64 `mapstructure:"zoom_min"`
		ZoomMax        float64 `mapstructure:"zoom_max"`
		ZoomStep       float64 `mapstructure:"zoom_step"`
	} `mapstructure:"ui"`

	Search struct {
		CacheSize int `mapstructure:"cache_size"`
	} `mapstructure:"search"`

	API struct {
		RateLimit struct {
			RequestsPerSecond int `mapstructure:"requests_per_second"`
			Burst             int `mapstructure:"burst"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	Sessions struct {
		Max int `mapstructure:"max"`
	} `mapstructure:"sessions"`
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("index.path", "data/rules.json")
	viper.SetDefault("index.upstream_api_url", "https://api.github.com/repos/SigmaHQ/sigma/commits/master")
	viper.SetDefault("index.freshness_enabled", true)
	viper.SetDefault("index.freshness_timeout", 10)

	viper.SetDefault("ui.page_size", 120)
	viper.SetDefault("ui.page_increment", 120)
	viper.SetDefault("ui.highlight_clear", 3)
	viper.SetDefault("ui.zoom_min", 0.4)
	viper.SetDefault("ui.zoom_max", 3.0)
	viper.SetDefault("ui.zoom_step", 0.2)

	viper.SetDefault("search.cache_size", 16384)

	viper.SetDefault("api.rate_limit.requests_per_second", 50)
	viper.SetDefault("api.rate_limit.burst", 100)

	viper.SetDefault("sessions.max", 1024)
}

// loadFromEnv sets up environment variable loading
func loadFromEnv() {
	viper.SetEnvPrefix("RULESCOPE")
	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "RULESCOPE_PORT")
	_ = viper.BindEnv("index.path", "RULESCOPE_INDEX_PATH")
	_ = viper.BindEnv("index.upstream_api_url", "RULESCOPE_UPSTREAM_API_URL")
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, will use defaults and env vars
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// HighlightTTL returns the highlight clear delay as a duration.
func (c *Config) HighlightTTL() time.Duration {
	return time.Duration(c.UI.HighlightClear) * time.Second
}

// FreshnessTimeout returns the upstream request timeout as a duration.
func (c *Config) FreshnessTimeout() time.Duration {
	return time.Duration(c.Index.FreshnessTimeout) * time.Second
}

// validateConfig validates the configuration for correctness
func validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", config.Server.Port)
	}
	if config.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if config.Index.Path == "" {
		return fmt.Errorf("index path cannot be empty")
	}
	if config.Index.FreshnessEnabled {
		parsed, err := url.Parse(config.Index.UpstreamAPIURL)
		if err != nil {
			return fmt.Errorf("invalid upstream API URL: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("invalid upstream API URL: scheme must be http or https")
		}
		if parsed.Host == "" {
			return fmt.Errorf("invalid upstream API URL: missing host")
		}
		if config.Index.FreshnessTimeout <= 0 {
			return fmt.Errorf("freshness timeout must be positive")
		}
	}

	if config.UI.PageSize <= 0 {
		return fmt.Errorf("ui page_size must be positive")
	}
	if config.UI.PageIncrement <= 0 {
		return fmt.Errorf("ui page_increment must be positive")
	}
	if config.UI.HighlightClear <= 0 {
		return fmt.Errorf("ui highlight_clear must be positive")
	}
	if config.UI.ZoomMin <= 0 || config.UI.ZoomMax <= config.UI.ZoomMin {
		return fmt.Errorf("ui zoom bounds invalid: min %.2f max %.2f", config.UI.ZoomMin, config.UI.ZoomMax)
	}
	if config.UI.ZoomStep <= 0 {
		return fmt.Errorf("ui zoom_step must be positive")
	}

	if config.Search.CacheSize <= 0 {
		return fmt.Errorf("search cache_size must be positive")
	}

	if config.API.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit requests_per_second must be positive")
	}
	if config.API.RateLimit.Burst < config.API.RateLimit.RequestsPerSecond {
		return fmt.Errorf("rate limit burst must be at least requests_per_second")
	}

	if config.Sessions.Max <= 0 {
		return fmt.Errorf("sessions max must be positive")
	}

	return nil
}
