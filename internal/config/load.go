package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/zapnorok/FileStructureAutomator/internal/provision"
)

// Resolved is the fully merged configuration handed to the commands, with
// duration strings parsed. Template is always the built-in folder template.
type Resolved struct {
	ConfigPath        string
	Dropbox           DropboxConfig
	MaxAttempts       int
	RetryAfter        time.Duration
	RequestTimeout    time.Duration
	ProvisionTimeout  time.Duration
	RequestsPerSecond float64
	UserAgent         string
	LogLevel          string
	LogFormat         string
	Template          provision.Template
	Credentials       Credentials
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, creds Credentials, cli CLIOverrides) (*Resolved, error) {
	// 1. Resolve config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		// An explicit --config must exist.
		if _, err := os.Stat(cli.ConfigPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}

		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (returns defaults if no file exists)
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Apply env overrides
	if env.AdminID != "" {
		cfg.Dropbox.SelectUser = env.AdminID
	}

	// 4. Apply CLI overrides (pointer fields: nil = not specified)
	if cli.MaxAttempts != nil {
		cfg.Retry.MaxAttempts = *cli.MaxAttempts
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	resolved, err := build(cfg, cfgPath, creds)
	if err != nil {
		return nil, err
	}

	if err := ValidateResolved(resolved); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return resolved, nil
}

// build converts a validated Config into its resolved form.
func build(cfg *Config, cfgPath string, creds Credentials) (*Resolved, error) {
	// Durations were checked by Validate; parse errors here are programming errors.
	retryAfter, err := parseDuration(cfg.Retry.DefaultRetryAfter)
	if err != nil {
		return nil, err
	}

	requestTimeout, err := parseDuration(cfg.Network.RequestTimeout)
	if err != nil {
		return nil, err
	}

	provisionTimeout, err := parseDuration(cfg.Network.ProvisionTimeout)
	if err != nil {
		return nil, err
	}

	dbx := cfg.Dropbox
	if dbx.TokenFile == "" {
		dbx.TokenFile = DefaultTokenPath()
	}

	dbx.TokenFile = expandTilde(dbx.TokenFile)

	return &Resolved{
		ConfigPath:        cfgPath,
		Dropbox:           dbx,
		MaxAttempts:       cfg.Retry.MaxAttempts,
		RetryAfter:        retryAfter,
		RequestTimeout:    requestTimeout,
		ProvisionTimeout:  provisionTimeout,
		RequestsPerSecond: cfg.Network.RequestsPerSecond,
		UserAgent:         cfg.Network.UserAgent,
		LogLevel:          cfg.Logging.LogLevel,
		LogFormat:         cfg.Logging.LogFormat,
		Template:          provision.DefaultTemplate(),
		Credentials:       creds,
	}, nil
}
