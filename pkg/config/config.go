package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the officer sampler
type Config struct {
	// Snapshot describes the registry bulk export used as the sampling universe
	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`

	// Sample controls the sampling and checkpoint loop
	Sample SampleConfig `yaml:"sample" json:"sample"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// API holds Companies House API settings
	API APIConfig `yaml:"api" json:"api"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry policy for officer page requests
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Analysis settings for the analyze command
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SnapshotConfig holds settings for reading the registry snapshot CSV
type SnapshotConfig struct {
	Path         string `yaml:"path" json:"path"`
	IDColumn     string `yaml:"id_column" json:"id_column"`
	StatusColumn string `yaml:"status_column" json:"status_column"`
	ActiveStatus string `yaml:"active_status" json:"active_status"`
}

// SampleConfig holds sampling and checkpoint settings
type SampleConfig struct {
	Size               int `yaml:"size" json:"size"`
	CheckpointInterval int `yaml:"checkpoint_interval" json:"checkpoint_interval"`
}

// OutputConfig holds the result store location
type OutputConfig struct {
	Path string `yaml:"path" json:"path"`
}

// APIConfig holds Companies House API settings
type APIConfig struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Key     string        `yaml:"key" json:"key"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Requests int           `yaml:"requests" json:"requests"`
	Window   time.Duration `yaml:"window" json:"window"`
}

// RetryConfig holds the retry policy for officer page requests
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	Delay       time.Duration `yaml:"delay" json:"delay"`
}

// UnmarshalYAML decodes the API section, accepting durations in Go's
// "30s" notation. Absent fields keep their current values.
func (a *APIConfig) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		BaseURL string `yaml:"base_url"`
		Key     string `yaml:"key"`
		Timeout string `yaml:"timeout"`
	}{BaseURL: a.BaseURL, Key: a.Key}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	a.BaseURL = raw.BaseURL
	a.Key = raw.Key
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid api timeout: %w", err)
		}
		a.Timeout = d
	}
	return nil
}

// MarshalYAML encodes the timeout as a duration string
func (a APIConfig) MarshalYAML() (interface{}, error) {
	return struct {
		BaseURL string `yaml:"base_url"`
		Key     string `yaml:"key"`
		Timeout string `yaml:"timeout"`
	}{a.BaseURL, a.Key, a.Timeout.String()}, nil
}

// UnmarshalYAML decodes the rate limit section, accepting the window in
// Go's "5m" notation
func (r *RateLimitConfig) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		Requests int    `yaml:"requests"`
		Window   string `yaml:"window"`
	}{Requests: r.Requests}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	r.Requests = raw.Requests
	if raw.Window != "" {
		d, err := time.ParseDuration(raw.Window)
		if err != nil {
			return fmt.Errorf("invalid rate limit window: %w", err)
		}
		r.Window = d
	}
	return nil
}

// MarshalYAML encodes the window as a duration string
func (r RateLimitConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Requests int    `yaml:"requests"`
		Window   string `yaml:"window"`
	}{r.Requests, r.Window.String()}, nil
}

// UnmarshalYAML decodes the retry section, accepting the delay in Go's
// "5s" notation
func (r *RetryConfig) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		MaxAttempts int    `yaml:"max_attempts"`
		Delay       string `yaml:"delay"`
	}{MaxAttempts: r.MaxAttempts}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	r.MaxAttempts = raw.MaxAttempts
	if raw.Delay != "" {
		d, err := time.ParseDuration(raw.Delay)
		if err != nil {
			return fmt.Errorf("invalid retry delay: %w", err)
		}
		r.Delay = d
	}
	return nil
}

// MarshalYAML encodes the delay as a duration string
func (r RetryConfig) MarshalYAML() (interface{}, error) {
	return struct {
		MaxAttempts int    `yaml:"max_attempts"`
		Delay       string `yaml:"delay"`
	}{r.MaxAttempts, r.Delay.String()}, nil
}

// AnalysisConfig holds settings for the analyze command
type AnalysisConfig struct {
	VariantsFile string `yaml:"variants_file" json:"variants_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Snapshot: SnapshotConfig{
			IDColumn:     "CompanyNumber",
			StatusColumn: "CompanyStatus",
			ActiveStatus: "Active",
		},
		Sample: SampleConfig{
			Size:               1000,
			CheckpointInterval: 50,
		},
		Output: OutputConfig{
			Path: "overseas_directors_sample.json",
		},
		API: APIConfig{
			BaseURL: "https://api.company-information.service.gov.uk",
			Timeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			// Companies House allows 600 requests per 5 minute window
			Requests: 600,
			Window:   5 * time.Minute,
		},
		Retry: RetryConfig{
			MaxAttempts: 2,
			Delay:       5 * time.Second,
		},
		Analysis: AnalysisConfig{
			VariantsFile: "overseas_companies_UK_variants.txt",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if key := os.Getenv("CHSAMPLER_API_KEY"); key != "" {
		c.API.Key = key
	}
	if path := os.Getenv("CHSAMPLER_SNAPSHOT_PATH"); path != "" {
		c.Snapshot.Path = path
	}
	if path := os.Getenv("CHSAMPLER_OUTPUT_PATH"); path != "" {
		c.Output.Path = path
	}
	if size := os.Getenv("CHSAMPLER_SAMPLE_SIZE"); size != "" {
		var val int
		fmt.Sscanf(size, "%d", &val)
		if val > 0 {
			c.Sample.Size = val
		}
	}
	if interval := os.Getenv("CHSAMPLER_CHECKPOINT_INTERVAL"); interval != "" {
		var val int
		fmt.Sscanf(interval, "%d", &val)
		if val > 0 {
			c.Sample.CheckpointInterval = val
		}
	}
	if variants := os.Getenv("CHSAMPLER_VARIANTS_FILE"); variants != "" {
		c.Analysis.VariantsFile = variants
	}
	if logLevel := os.Getenv("CHSAMPLER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
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
		".chsampler.yaml",
		".chsampler.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "chsampler", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "chsampler", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".chsampler.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Snapshot.IDColumn == "" {
		errs = append(errs, errors.New("snapshot identifier column is required"))
	}
	if c.Snapshot.StatusColumn == "" {
		errs = append(errs, errors.New("snapshot status column is required"))
	}

	if c.Sample.Size <= 0 {
		errs = append(errs, errors.New("sample size must be positive"))
	}
	if c.Sample.CheckpointInterval <= 0 {
		errs = append(errs, errors.New("checkpoint interval must be positive"))
	}

	if c.Output.Path == "" {
		errs = append(errs, errors.New("output path is required"))
	}

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}

	if c.RateLimit.Requests <= 0 {
		errs = append(errs, errors.New("rate limit requests must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry attempts must be at least 1"))
	}
	if c.Retry.Delay < 0 {
		errs = append(errs, errors.New("retry delay cannot be negative"))
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

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if path, ok := flags["snapshot"].(string); ok && path != "" {
		c.Snapshot.Path = path
	}
	if path, ok := flags["output"].(string); ok && path != "" {
		c.Output.Path = path
	}
	if size, ok := flags["sample-size"].(int); ok && size > 0 {
		c.Sample.Size = size
	}
	if interval, ok := flags["checkpoint-interval"].(int); ok && interval > 0 {
		c.Sample.CheckpointInterval = interval
	}
	if key, ok := flags["api-key"].(string); ok && key != "" {
		c.API.Key = key
	}
	if variants, ok := flags["variants"].(string); ok && variants != "" {
		c.Analysis.VariantsFile = variants
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".chsampler.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
