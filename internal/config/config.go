// Package config loads configuration for the catalog client tools and the
// reference origin: defaults, then an optional YAML file, then a .env file,
// then environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/sat-catalog-client/internal/upstream"
	"github.com/Sternrassler/sat-catalog-client/pkg/client"
	"github.com/Sternrassler/sat-catalog-client/pkg/logging"
	"github.com/Sternrassler/sat-catalog-client/pkg/pagination"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Config is the full configuration.
type Config struct {
	Client ClientConfig `yaml:"client"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// ClientConfig configures the catalog client.
type ClientConfig struct {
	PrimaryURL     string        `yaml:"primary_url"`
	SecondaryURL   string        `yaml:"secondary_url"`
	UserAgent      string        `yaml:"user_agent"`
	PrimaryTimeout time.Duration `yaml:"primary_timeout"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	Fallback       bool          `yaml:"fallback"`
	PageSize       int           `yaml:"page_size"`
}

// ServerConfig configures the reference origin.
type ServerConfig struct {
	Port         string        `yaml:"port"`
	RedisURL     string        `yaml:"redis_url"`
	CelestrakURL string        `yaml:"celestrak_url"`
	DefaultGroup string        `yaml:"default_group"`
	FeedTimeout  time.Duration `yaml:"feed_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Client: ClientConfig{
			PrimaryURL:     "http://localhost:8080",
			UserAgent:      "sat-catalog-client/0.1.0",
			PrimaryTimeout: 1 * time.Second,
			CacheTTL:       60 * time.Second,
			Fallback:       true,
			PageSize:       500,
		},
		Server: ServerConfig{
			Port:         "8080",
			CelestrakURL: upstream.DefaultBaseURL,
			DefaultGroup: "visual",
			FeedTimeout:  10 * time.Second,
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips it. The .env file named by ENV_FILE (default .env) is loaded
// when present and never overrides variables already set.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Client.PrimaryURL, "SATCAT_PRIMARY_URL")
	setString(&c.Client.SecondaryURL, "SATCAT_SECONDARY_URL")
	setString(&c.Client.UserAgent, "SATCAT_USER_AGENT")
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.RedisURL, "REDIS_URL")
	setString(&c.Server.CelestrakURL, "CELESTRAK_URL")
	setString(&c.Server.DefaultGroup, "SATCAT_DEFAULT_GROUP")
	setString(&c.Log.Level, "LOG_LEVEL")

	return errors.Join(
		setDuration(&c.Client.PrimaryTimeout, "SATCAT_PRIMARY_TIMEOUT"),
		setDuration(&c.Client.CacheTTL, "SATCAT_CACHE_TTL"),
		setDuration(&c.Server.FeedTimeout, "SATCAT_FEED_TIMEOUT"),
		setBool(&c.Client.Fallback, "SATCAT_FALLBACK"),
		setBool(&c.Log.Pretty, "LOG_PRETTY"),
		setInt(&c.Client.PageSize, "SATCAT_PAGE_SIZE"),
	)
}

// ValidateClient checks the settings the catalog client needs.
func (c *Config) ValidateClient() error {
	var errs []error
	if err := validateURL("primary_url", c.Client.PrimaryURL); err != nil {
		errs = append(errs, err)
	}
	if err := validateURL("secondary_url", c.Client.SecondaryURL); err != nil {
		errs = append(errs, err)
	}
	if c.Client.UserAgent == "" {
		errs = append(errs, fmt.Errorf("user_agent is required"))
	}
	if c.Client.PrimaryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("primary_timeout must be > 0 (got %s)", c.Client.PrimaryTimeout))
	}
	if c.Client.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must be > 0 (got %s)", c.Client.CacheTTL))
	}
	if c.Client.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page_size must be > 0 (got %d)", c.Client.PageSize))
	}
	return errors.Join(errs...)
}

// ValidateServer checks the settings the reference origin needs.
func (c *Config) ValidateServer() error {
	var errs []error
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Server.Port))
	}
	if err := validateURL("celestrak_url", c.Server.CelestrakURL); err != nil {
		errs = append(errs, err)
	}
	if c.Server.DefaultGroup == "" {
		errs = append(errs, fmt.Errorf("default_group is required"))
	}
	if c.Server.FeedTimeout <= 0 {
		errs = append(errs, fmt.Errorf("feed_timeout must be > 0 (got %s)", c.Server.FeedTimeout))
	}
	return errors.Join(errs...)
}

// ClientOptions converts the client section for client.New.
func (c *Config) ClientOptions() client.Config {
	cfg := client.DefaultConfig(c.Client.PrimaryURL, c.Client.SecondaryURL)
	cfg.UserAgent = c.Client.UserAgent
	cfg.PrimaryTimeout = c.Client.PrimaryTimeout
	cfg.CacheTTL = c.Client.CacheTTL
	cfg.FallbackRedispatch = c.Client.Fallback
	return cfg
}

// LoaderOptions converts the page size for pagination.NewLoader.
func (c *Config) LoaderOptions() pagination.Config {
	return pagination.Config{PageSize: c.Client.PageSize}
}

// UpstreamOptions converts the server section for upstream.NewFetcher.
func (c *Config) UpstreamOptions() upstream.Config {
	cfg := upstream.DefaultConfig()
	cfg.BaseURL = c.Server.CelestrakURL
	cfg.Timeout = c.Server.FeedTimeout
	cfg.UserAgent = c.Client.UserAgent
	return cfg
}

// LoggingOptions converts the log section for logging.Setup.
func (c *Config) LoggingOptions(service string) logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	cfg.Service = service
	return cfg
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q", name, raw)
	}
	return nil
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = n
	return nil
}
