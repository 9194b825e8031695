// Package config implements TOML configuration loading, validation, and
// environment handling for the provisioner. It applies a four-layer override
// chain (defaults -> config file -> environment -> CLI flags). Credentials
// come only from the environment (optionally seeded from a .env file) and
// never from the config file.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Dropbox DropboxConfig `toml:"dropbox"`
	Retry   RetryConfig   `toml:"retry"`
	Network NetworkConfig `toml:"network"`
	Logging LoggingConfig `toml:"logging"`
}

// DropboxConfig selects the API endpoints and the account to act as.
// select_user and select_admin are mutually exclusive; they only apply to
// Dropbox Business team tokens.
type DropboxConfig struct {
	APIURL      string `toml:"api_url" json:"api_url"`
	TokenURL    string `toml:"token_url" json:"token_url"`
	SelectUser  string `toml:"select_user" json:"select_user,omitempty"`
	SelectAdmin string `toml:"select_admin" json:"select_admin,omitempty"`
	TokenFile   string `toml:"token_file" json:"token_file"`
}

// RetryConfig bounds the rate-limit retry loop used for folder and link
// creation.
type RetryConfig struct {
	MaxAttempts       int    `toml:"max_attempts"`
	DefaultRetryAfter string `toml:"default_retry_after"`
}

// NetworkConfig controls HTTP behavior. provision_timeout bounds a whole
// provisioning run; "0" means no overall deadline.
type NetworkConfig struct {
	RequestTimeout    string  `toml:"request_timeout"`
	ProvisionTimeout  string  `toml:"provision_timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	UserAgent         string  `toml:"user_agent"`
}

// LoggingConfig controls log output: level and format (text, json, auto).
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath  string // --config flag (empty = use default)
	MaxAttempts *int   // --max-retries flag
}
