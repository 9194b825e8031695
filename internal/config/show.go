package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration as an annotated summary
// to w. Credentials are reported only as present or missing.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", orNone(r.ConfigPath))

	ew.printf("[dropbox]\n")
	ew.printf("  api_url      = %q\n", r.Dropbox.APIURL)
	ew.printf("  token_url    = %q\n", r.Dropbox.TokenURL)
	ew.printf("  select_user  = %q\n", r.Dropbox.SelectUser)
	ew.printf("  select_admin = %q\n", r.Dropbox.SelectAdmin)
	ew.printf("  token_file   = %q\n\n", r.Dropbox.TokenFile)

	ew.printf("[credentials]\n")
	ew.printf("  %-20s = %s\n", EnvRefreshToken, presence(r.Credentials.RefreshToken))
	ew.printf("  %-20s = %s\n", EnvAccessToken, presence(r.Credentials.AccessToken))
	ew.printf("  %-20s = %s\n", EnvClientID, presence(r.Credentials.ClientID))
	ew.printf("  %-20s = %s\n\n", EnvClientSecret, presence(r.Credentials.ClientSecret))

	ew.printf("[retry]\n")
	ew.printf("  max_attempts        = %d\n", r.MaxAttempts)
	ew.printf("  default_retry_after = %q\n\n", r.RetryAfter.String())

	ew.printf("[network]\n")
	ew.printf("  request_timeout     = %q\n", r.RequestTimeout.String())
	ew.printf("  provision_timeout   = %q\n", r.ProvisionTimeout.String())
	ew.printf("  requests_per_second = %g\n", r.RequestsPerSecond)
	ew.printf("  user_agent          = %q\n\n", r.UserAgent)

	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", r.LogLevel)
	ew.printf("  log_format = %q\n\n", r.LogFormat)

	ew.printf("[template]\n")
	ew.printf("  folders = %d entries\n", r.Template.Len())

	return ew.err
}

// Summary is the JSON form of the effective configuration. Credentials are
// reduced to presence flags.
type Summary struct {
	ConfigPath        string          `json:"config_path"`
	Dropbox           DropboxConfig   `json:"dropbox"`
	Credentials       map[string]bool `json:"credentials"`
	MaxAttempts       int             `json:"max_attempts"`
	DefaultRetryAfter string          `json:"default_retry_after"`
	RequestTimeout    string          `json:"request_timeout"`
	ProvisionTimeout  string          `json:"provision_timeout"`
	RequestsPerSecond float64         `json:"requests_per_second"`
	UserAgent         string          `json:"user_agent"`
	LogLevel          string          `json:"log_level"`
	LogFormat         string          `json:"log_format"`
	Folders           []string        `json:"folders"`
}

// Summarize builds the JSON-safe Summary of r.
func Summarize(r *Resolved) Summary {
	return Summary{
		ConfigPath: r.ConfigPath,
		Dropbox:    r.Dropbox,
		Credentials: map[string]bool{
			EnvRefreshToken: r.Credentials.RefreshToken != "",
			EnvAccessToken:  r.Credentials.AccessToken != "",
			EnvClientID:     r.Credentials.ClientID != "",
			EnvClientSecret: r.Credentials.ClientSecret != "",
		},
		MaxAttempts:       r.MaxAttempts,
		DefaultRetryAfter: r.RetryAfter.String(),
		RequestTimeout:    r.RequestTimeout.String(),
		ProvisionTimeout:  r.ProvisionTimeout.String(),
		RequestsPerSecond: r.RequestsPerSecond,
		UserAgent:         r.UserAgent,
		LogLevel:          r.LogLevel,
		LogFormat:         r.LogFormat,
		Folders:           r.Template.Paths(),
	}
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func presence(s string) string {
	if s == "" {
		return "(missing)"
	}

	return "(set)"
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}

	return s
}
