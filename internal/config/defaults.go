package config

import (
	"github.com/zapnorok/FileStructureAutomator/internal/dropbox"
	"github.com/zapnorok/FileStructureAutomator/internal/retry"
)

// Default values for configuration options. These are "layer 0" of the
// override chain.
const (
	defaultRetryAfter       = "300s"
	defaultRequestTimeout   = "30s"
	defaultProvisionTimeout = "0"
	defaultLogLevel         = "info"
	defaultLogFormat        = "auto"
)

// DefaultConfig returns a Config populated with all default values. It is the
// starting point for TOML decoding, so unset fields keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		Dropbox: DropboxConfig{
			APIURL:   dropbox.DefaultAPIURL,
			TokenURL: dropbox.DefaultTokenURL,
		},
		Retry: RetryConfig{
			MaxAttempts:       retry.DefaultMaxAttempts,
			DefaultRetryAfter: defaultRetryAfter,
		},
		Network: NetworkConfig{
			RequestTimeout:   defaultRequestTimeout,
			ProvisionTimeout: defaultProvisionTimeout,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
