package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validation range constants.
const (
	maxRetryAttempts   = 10
	minRequestTimeout  = time.Second
	maxRequestsPerSec  = 100.0
	maxRetryAfterLimit = time.Hour
)

var (
	validLogLevels  = []any{"debug", "info", "warn", "error"}
	validLogFormats = []any{"auto", "text", "json"}
)

// Validate checks all configuration values and returns every error found,
// keyed by the dotted TOML name of the offending field.
func Validate(cfg *Config) error {
	errs := validation.Errors{
		"dropbox.api_url":   validation.Validate(cfg.Dropbox.APIURL, validation.Required, validation.By(httpURL)),
		"dropbox.token_url": validation.Validate(cfg.Dropbox.TokenURL, validation.Required, validation.By(httpURL)),
		"dropbox.select_admin": validation.Validate(cfg.Dropbox.SelectAdmin,
			validation.When(cfg.Dropbox.SelectUser != "",
				validation.Empty.Error("cannot be combined with dropbox.select_user"))),
		"retry.max_attempts": validation.Validate(cfg.Retry.MaxAttempts,
			validation.Min(0), validation.Max(maxRetryAttempts)),
		"retry.default_retry_after": validation.Validate(cfg.Retry.DefaultRetryAfter,
			validation.Required, validation.By(durationWithin(0, maxRetryAfterLimit))),
		"network.request_timeout": validation.Validate(cfg.Network.RequestTimeout,
			validation.Required, validation.By(durationWithin(minRequestTimeout, 0))),
		"network.provision_timeout": validation.Validate(cfg.Network.ProvisionTimeout,
			validation.By(durationWithin(0, 0))),
		"network.requests_per_second": validation.Validate(cfg.Network.RequestsPerSecond,
			validation.Min(0.0), validation.Max(maxRequestsPerSec)),
		"logging.log_level":  validation.Validate(cfg.Logging.LogLevel, validation.In(validLogLevels...)),
		"logging.log_format": validation.Validate(cfg.Logging.LogFormat, validation.In(validLogFormats...)),
	}

	return errs.Filter()
}

// ValidateResolved checks constraints that only make sense after the
// override chain has been applied, such as ADMIN_ID from the environment
// meeting select_admin from the file.
func ValidateResolved(r *Resolved) error {
	if r.Dropbox.SelectUser != "" && r.Dropbox.SelectAdmin != "" {
		return errors.New("select_user (or ADMIN_ID) and select_admin are mutually exclusive")
	}

	return nil
}

// RequireCredentials reports whether enough credentials are present to call
// Dropbox. Commands that never reach the API skip this check.
func (r *Resolved) RequireCredentials() error {
	var errs []error

	creds := r.Credentials
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		errs = append(errs, fmt.Errorf("no credentials: set %s or %s", EnvRefreshToken, EnvAccessToken))
	}

	if creds.RefreshToken != "" && creds.ClientID == "" {
		errs = append(errs, fmt.Errorf("%s is required to refresh tokens", EnvClientID))
	}

	return errors.Join(errs...)
}

func httpURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must be an http or https URL")
	}

	if u.Host == "" {
		return errors.New("missing host")
	}

	return nil
}

// durationWithin returns a rule checking that a duration string parses and
// falls in [lo, hi]. A zero hi means unbounded.
func durationWithin(lo, hi time.Duration) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}

		d, err := parseDuration(s)
		if err != nil {
			return err
		}

		if d < lo {
			return fmt.Errorf("must be at least %s", lo)
		}

		if hi > 0 && d > hi {
			return fmt.Errorf("must be at most %s", hi)
		}

		return nil
	}
}

// parseDuration accepts Go duration strings and the bare "0".
func parseDuration(s string) (time.Duration, error) {
	if s == "0" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	return d, nil
}
