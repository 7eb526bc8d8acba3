package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Endpoint.Host = "ftp.example.com"
	ApplyDefaults(cfg)
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidateFieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing host", func(c *Config) { c.Endpoint.Host = "" }},
		{"port too low", func(c *Config) { c.Endpoint.Port = 0 }},
		{"port too high", func(c *Config) { c.Endpoint.Port = 70000 }},
		{"missing user", func(c *Config) { c.Endpoint.User = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "TRACE" }},
		{"missing log output", func(c *Config) { c.Logging.Output = "" }},
		{"bad permissions", func(c *Config) { c.Facade.Permissions = "open" }},
		{"too many retries", func(c *Config) { c.Endpoint.RetryAttempts = 11 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidateBurstRequiresRate(t *testing.T) {
	cfg := validConfig()
	cfg.Limits.ExchangeBurst = 10

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange_burst")

	cfg.Limits.ExchangesPerSecond = 5
	assert.NoError(t, Validate(cfg))
}

func TestApplyDefaultsNormalizesLevel(t *testing.T) {
	cfg := &Config{}
	cfg.Endpoint.Host = "h"
	cfg.Logging.Level = "warn"
	ApplyDefaults(cfg)

	assert.Equal(t, "WARN", cfg.Logging.Level)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Endpoint.Host = "h"
	cfg.Endpoint.Port = 990
	cfg.Endpoint.User = "deploy"
	cfg.Facade.Permissions = "strict"
	ApplyDefaults(cfg)

	assert.Equal(t, 990, cfg.Endpoint.Port)
	assert.Equal(t, "deploy", cfg.Endpoint.User)
	assert.Equal(t, "strict", cfg.Facade.Permissions)
}
