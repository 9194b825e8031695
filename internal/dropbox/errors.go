// Package dropbox is a minimal HTTP client for the Dropbox API v2 RPC
// endpoints used by the provisioner: folder creation, shared links and the
// OAuth2 refresh-token exchange. It classifies failures into sentinel errors
// and reports authorization failures to the credential owner.
package dropbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for HTTP status classification.
// Use errors.Is(err, dropbox.ErrConflict) to check.
var (
	ErrBadRequest   = errors.New("dropbox: bad request")
	ErrUnauthorized = errors.New("dropbox: unauthorized")
	ErrForbidden    = errors.New("dropbox: forbidden")
	ErrNotFound     = errors.New("dropbox: not found")
	ErrConflict     = errors.New("dropbox: conflict")
	ErrThrottled    = errors.New("dropbox: too many requests")
	ErrServerError  = errors.New("dropbox: server error")

	// ErrNoAccessToken is returned by TokenManager.Token before any access
	// token has been supplied or obtained.
	ErrNoAccessToken = errors.New("dropbox: no access token")
	// ErrNoRefreshToken means a refresh exchange was requested without a
	// refresh token to exchange.
	ErrNoRefreshToken = errors.New("dropbox: no refresh token configured")
)

// APIError is a non-2xx response from the Dropbox API. It wraps a sentinel
// for errors.Is and keeps the endpoint's error_summary and raw error detail
// so callers can inspect route-specific error unions.
type APIError struct {
	StatusCode int
	Route      string
	Summary    string          // error_summary, e.g. "path/conflict/folder/..."
	Detail     json.RawMessage // the "error" union, nil for non-JSON bodies
	Body       string
	Header     http.Header
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	msg := e.Summary
	if msg == "" {
		msg = e.Body
	}

	return fmt.Sprintf("dropbox: HTTP %d on %s: %s", e.StatusCode, e.Route, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// ResponseHeader returns the response headers.
func (e *APIError) ResponseHeader() http.Header {
	return e.Header
}

// HasSummaryPrefix reports whether the error_summary starts with the given
// union tag path, e.g. "shared_link_already_exists".
func (e *APIError) HasSummaryPrefix(tag string) bool {
	return strings.HasPrefix(e.Summary, tag)
}

// errorEnvelope is the JSON shape Dropbox uses for endpoint errors.
type errorEnvelope struct {
	ErrorSummary string          `json:"error_summary"`
	Error        json.RawMessage `json:"error"`
}

// rateLimitDetail is the "error" member of a 429 response.
type rateLimitDetail struct {
	RetryAfter int `json:"retry_after"`
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes that have no sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
