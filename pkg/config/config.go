package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the month archiver
type Config struct {
	// API connection settings
	API APIConfig `yaml:"api" json:"api"`

	// Throttling behaviour
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Export settings (what to fetch)
	Export ExportConfig `yaml:"export" json:"export"`

	// Output settings (where to write)
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds X API connection configuration
type APIConfig struct {
	BearerToken    string        `yaml:"bearer_token" json:"bearer_token"`
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// RateLimitConfig holds throttle handling configuration
type RateLimitConfig struct {
	// DefaultBackoff is the sleep used when a throttled response carries no
	// usable Retry-After header.
	DefaultBackoff time.Duration `yaml:"default_backoff" json:"default_backoff"`

	// MaxThrottleRetries caps how often a single request is retried after
	// 429/503 responses. 0 means unlimited.
	MaxThrottleRetries int `yaml:"max_throttle_retries" json:"max_throttle_retries"`
}

// ExportConfig holds settings describing the export itself
type ExportConfig struct {
	Month           string `yaml:"month" json:"month"`
	IncludeReplies  bool   `yaml:"include_replies" json:"include_replies"`
	IncludeRetweets bool   `yaml:"include_retweets" json:"include_retweets"`
	PerPage         int    `yaml:"per_page" json:"per_page"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "https://api.x.com/2",
			RequestTimeout: 60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			DefaultBackoff:     60 * time.Second,
			MaxThrottleRetries: 0,
		},
		Export: ExportConfig{
			IncludeReplies:  false,
			IncludeRetweets: false,
			PerPage:         100,
		},
		Output: OutputConfig{
			BaseDirectory: ".",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load builds the configuration from all sources in priority order:
// defaults, .env file, config file, environment variables, command line flags.
func Load(path string, flags map[string]interface{}) (*Config, error) {
	// Load .env if present; a missing file is not an error
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	cfg.MergeFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if token := os.Getenv("X_BEARER_TOKEN"); token != "" {
		c.API.BearerToken = token
	}
	if base := os.Getenv("XMONTH_API_BASE_URL"); base != "" {
		c.API.BaseURL = base
	}
	if outdir := os.Getenv("XMONTH_OUTPUT_DIR"); outdir != "" {
		c.Output.BaseDirectory = outdir
	}
	if perPage := os.Getenv("XMONTH_PER_PAGE"); perPage != "" {
		if val, err := strconv.Atoi(perPage); err == nil && val > 0 {
			c.Export.PerPage = val
		}
	}
	if level := os.Getenv("XMONTH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".xmonth.yaml",
		".xmonth.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "xmonth", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "xmonth", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".xmonth.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// MergeFlags merges command line flag values into the configuration
func (c *Config) MergeFlags(flags map[string]interface{}) {
	if flags == nil {
		return
	}

	if token, ok := flags["bearer-token"].(string); ok && token != "" {
		c.API.BearerToken = token
	}
	if month, ok := flags["month"].(string); ok && month != "" {
		c.Export.Month = month
	}
	if outdir, ok := flags["outdir"].(string); ok && outdir != "" {
		c.Output.BaseDirectory = outdir
	}
	if perPage, ok := flags["per-page"].(int); ok && perPage > 0 {
		c.Export.PerPage = perPage
	}
	if replies, ok := flags["include-replies"].(bool); ok {
		c.Export.IncludeReplies = replies
	}
	if retweets, ok := flags["include-retweets"].(bool); ok {
		c.Export.IncludeRetweets = retweets
	}
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
	if retries, ok := flags["max-throttle-retries"].(int); ok && retries > 0 {
		c.RateLimit.MaxThrottleRetries = retries
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.RateLimit.DefaultBackoff <= 0 {
		errs = append(errs, errors.New("default backoff must be positive"))
	}
	if c.RateLimit.MaxThrottleRetries < 0 {
		errs = append(errs, errors.New("max throttle retries cannot be negative"))
	}

	if c.Export.Month != "" && !monthPattern.MatchString(c.Export.Month) {
		errs = append(errs, fmt.Errorf("month must be in YYYY-MM format, got %q", c.Export.Month))
	}
	if c.Export.PerPage <= 0 {
		errs = append(errs, errors.New("per-page must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Config may hold the bearer token, keep it private
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
