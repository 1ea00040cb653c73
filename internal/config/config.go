package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for hdfhub
type Config struct {
	// Directory converted records are written to
	OutputDir string `mapstructure:"output_dir"`

	// Output format (json, text, both)
	Format string `mapstructure:"format"`

	// Number of files converted concurrently
	Workers int `mapstructure:"workers"`

	// Upper bound for a whole convert run
	Timeout time.Duration `mapstructure:"timeout"`

	// Optional YAML file replacing the embedded CCI/CWE to NIST table
	CCITable string `mapstructure:"cci_table"`

	// Fail on checklist severities with no impact mapping
	StrictSeverity bool `mapstructure:"strict_severity"`

	// Impact used for unmapped severities when not strict
	FallbackImpact float64 `mapstructure:"fallback_impact"`

	// Failed-control count above which convert exits non-zero
	FailThreshold int `mapstructure:"fail_threshold"`

	// Verbose output
	Verbose bool `mapstructure:"verbose"`

	// Debug mode
	Debug bool `mapstructure:"debug"`

	// Log output: console or json
	LogFormat string `mapstructure:"log_format"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		OutputDir:      ".",
		Format:         "json",
		Workers:        4,
		Timeout:        5 * time.Minute,
		FallbackImpact: 0.5,
		FailThreshold:  0, // 0 means no threshold check
		LogFormat:      "console",
	}
}

// Load loads configuration with the following precedence (lowest to highest):
// 1. Default values
// 2. Config file (~/.hdfhub.yaml or ./hdfhub.yaml)
// 3. Environment variables (HDFHUB_*)
// 4. CLI flags (handled by caller)
func Load() (*Config, error) {
	return LoadFromFile("")
}

// LoadFromFile loads configuration from a specific file path.
// If path is empty, it searches for config in standard locations.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("cci_table", "")
	v.SetDefault("strict_severity", defaults.StrictSeverity)
	v.SetDefault("fallback_impact", defaults.FallbackImpact)
	v.SetDefault("fail_threshold", defaults.FailThreshold)
	v.SetDefault("verbose", defaults.Verbose)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("log_format", defaults.LogFormat)

	v.SetConfigName("hdfhub")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}

		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			v.AddConfigPath(filepath.Join(xdgConfig, "hdfhub"))
		}
	}

	v.SetEnvPrefix("HDFHUB")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"both": true,
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("invalid format: %s (must be json, text, or both)", c.Format)
	}

	if c.FailThreshold < 0 {
		return fmt.Errorf("fail_threshold cannot be negative")
	}

	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if c.FallbackImpact < 0 || c.FallbackImpact > 1 {
		return fmt.Errorf("fallback_impact must be between 0 and 1")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}

	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %s (must be console or json)", c.LogFormat)
	}

	return nil
}

// GetOutputPath returns the absolute path to the output directory
func (c *Config) GetOutputPath() (string, error) {
	if strings.HasPrefix(c.OutputDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, c.OutputDir[2:]), nil
	}

	absPath, err := filepath.Abs(c.OutputDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}

// ShouldFailOnThreshold checks if the failed-control count exceeds the threshold
func (c *Config) ShouldFailOnThreshold(failedCount int) bool {
	if c.FailThreshold == 0 {
		return false // No threshold check
	}
	return failedCount > c.FailThreshold
}

// GenerateSampleConfig generates a sample configuration file content
func GenerateSampleConfig() string {
	return `# hdfhub configuration
# Save this file as ~/.hdfhub.yaml or ./hdfhub.yaml

# Directory converted records are written to
output_dir: .

# Output format: json, text, or both
format: json

# Number of files converted concurrently
workers: 4

# Upper bound for a whole convert run
timeout: 5m

# Replace the embedded CCI/CWE to NIST table
# cci_table: /etc/hdfhub/cci.yaml

# Fail on checklist severities outside high/medium/low
strict_severity: false

# Impact used for unmapped severities when strict_severity is off
fallback_impact: 0.5

# Exit code 1 if failed controls exceed this number
# Set to 0 to disable threshold checking
fail_threshold: 0

# Enable verbose output
verbose: false

# Enable debug mode
debug: false

# Log output: console or json
log_format: console
`
}
