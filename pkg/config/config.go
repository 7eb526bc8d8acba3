// Package config loads and validates ftpfs configuration from file,
// environment, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete ftpfs configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (FTPFS_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Endpoint describes the remote FTP endpoint
	Endpoint EndpointConfig `mapstructure:"endpoint"`

	// Facade contains facade behavior settings
	Facade FacadeConfig `mapstructure:"facade"`

	// Limits contains client-side throttling settings
	Limits LimitsConfig `mapstructure:"limits"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// EndpointConfig describes the single remote endpoint a facade instance
// talks to.
type EndpointConfig struct {
	// Host is the remote host name or address
	Host string `mapstructure:"host" validate:"required"`

	// Port is the control-connection port
	Port int `mapstructure:"port" validate:"gte=1,lte=65535"`

	// User and Password are the credentials ("anonymous" is common)
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`

	// DisableUTF8 skips UTF-8 negotiation for servers that mishandle it
	DisableUTF8 bool `mapstructure:"disable_utf8"`

	// DisableEPSV forces the classic PASV data-channel mode
	DisableEPSV bool `mapstructure:"disable_epsv"`

	// ConnectTimeout bounds each dial attempt
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gte=0"`

	// RetryAttempts is the number of additional dial attempts after a
	// refused connection
	RetryAttempts int `mapstructure:"retry_attempts" validate:"gte=0,lte=10"`
}

// FacadeConfig contains facade behavior settings.
type FacadeConfig struct {
	// Permissions decides capability flags for entries whose server
	// reports no permission bits
	// Valid values: permissive, strict
	Permissions string `mapstructure:"permissions" validate:"required,oneof=permissive strict"`
}

// LimitsConfig contains client-side throttling settings.
type LimitsConfig struct {
	// ExchangesPerSecond throttles protocol exchanges (0 = unthrottled)
	ExchangesPerSecond uint `mapstructure:"exchanges_per_second"`

	// ExchangeBurst is the throttle burst capacity (0 = same as rate)
	ExchangeBurst uint `mapstructure:"exchange_burst"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable and config file handling.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the FTPFS_ prefix and underscores
	// Example: FTPFS_ENDPOINT_HOST=ftp.example.com
	v.SetEnvPrefix("FTPFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file is fine - defaults and environment apply
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ftpfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ftpfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
