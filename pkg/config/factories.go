package config

import (
	"github.com/driftfs/ftpfs/pkg/ftpfs"
	"github.com/driftfs/ftpfs/pkg/ftpwire"
)

// WireEndpoint builds the immutable wire endpoint from configuration.
func (c *Config) WireEndpoint() ftpwire.Endpoint {
	return ftpwire.Endpoint{
		Host:           c.Endpoint.Host,
		Port:           c.Endpoint.Port,
		User:           c.Endpoint.User,
		Password:       c.Endpoint.Password,
		DisableUTF8:    c.Endpoint.DisableUTF8,
		DisableEPSV:    c.Endpoint.DisableEPSV,
		ConnectTimeout: c.Endpoint.ConnectTimeout,
		RetryAttempts:  c.Endpoint.RetryAttempts,
	}
}

// ClientOptions builds facade options from configuration.
func (c *Config) ClientOptions() *ftpfs.Options {
	policy := ftpfs.PermissionPermissive
	if c.Facade.Permissions == "strict" {
		policy = ftpfs.PermissionStrict
	}

	return &ftpfs.Options{
		Permissions:        policy,
		ExchangesPerSecond: c.Limits.ExchangesPerSecond,
		ExchangeBurst:      c.Limits.ExchangeBurst,
	}
}

// NewClient wires a ready facade from configuration: a retrying TCP dialer
// for the configured endpoint plus the configured facade options.
func (c *Config) NewClient() *ftpfs.Client {
	return ftpfs.New(ftpwire.NewDialer(c.WireEndpoint()), c.ClientOptions())
}
