package config

import (
	"strings"
	"time"
)

// Default values applied to any field the config file and environment left
// unset.
const (
	DefaultLogLevel  = "INFO"
	DefaultLogOutput = "stdout"

	DefaultPort           = 21
	DefaultUser           = "anonymous"
	DefaultConnectTimeout = 30 * time.Second
	DefaultRetryAttempts  = 2

	DefaultPermissions = "permissive"
)

// ApplyDefaults fills in defaults for any missing values and normalizes
// the log level to uppercase.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if cfg.Logging.Output == "" {
		cfg.Logging.Output = DefaultLogOutput
	}

	if cfg.Endpoint.Port == 0 {
		cfg.Endpoint.Port = DefaultPort
	}
	if cfg.Endpoint.User == "" {
		cfg.Endpoint.User = DefaultUser
	}
	if cfg.Endpoint.ConnectTimeout == 0 {
		cfg.Endpoint.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.Endpoint.RetryAttempts == 0 {
		cfg.Endpoint.RetryAttempts = DefaultRetryAttempts
	}

	if cfg.Facade.Permissions == "" {
		cfg.Facade.Permissions = DefaultPermissions
	}
}
