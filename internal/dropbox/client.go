package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// Default endpoints.
const (
	DefaultAPIURL   = "https://api.dropboxapi.com/2"
	DefaultTokenURL = "https://api.dropboxapi.com/oauth2/token"
	userAgent       = "filestructure-automator/0.1"
)

// Team-account selector headers. Only one of them is sent per request.
const (
	headerSelectUser  = "Dropbox-API-Select-User"
	headerSelectAdmin = "Dropbox-API-Select-Admin"
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 64 * 1024

// Authenticator supplies bearer tokens and is told about authorization
// failures. Defined at the consumer; TokenManager is the real implementation.
type Authenticator interface {
	Token() (string, error)
	OnAuthFailure(ctx context.Context, status int)
}

// Options tunes a Client. The zero value talks to the user's own account
// without client-side pacing.
type Options struct {
	// SelectUser acts on behalf of a team member (Dropbox-API-Select-User).
	SelectUser string
	// SelectAdmin acts as a team admin (Dropbox-API-Select-Admin).
	SelectAdmin string
	// RequestsPerSecond paces outgoing calls. Zero disables pacing.
	RequestsPerSecond float64
	UserAgent         string
}

// Client is an HTTP client for Dropbox API v2 RPC endpoints. It performs a
// single attempt per call; retry decisions belong to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       Authenticator
	opts       Options
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a Dropbox API client.
// baseURL is typically DefaultAPIURL.
func NewClient(baseURL string, httpClient *http.Client, auth Authenticator, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if opts.UserAgent == "" {
		opts.UserAgent = userAgent
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := max(int(opts.RequestsPerSecond), 1)
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		auth:       auth,
		opts:       opts,
		limiter:    limiter,
		logger:     logger,
	}
}

// RPC POSTs arg as JSON to the given route (e.g. "/files/create_folder_v2")
// and decodes a 2xx response into out, which may be nil.
//
// Non-2xx responses are returned as *APIError. A 401 is reported to the
// Authenticator before returning so the next call uses fresh credentials;
// the failed call itself is not replayed.
func (c *Client) RPC(ctx context.Context, route string, arg, out any) error {
	payload, err := json.Marshal(arg)
	if err != nil {
		return fmt.Errorf("dropbox: encoding %s request: %w", route, err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("dropbox: waiting for rate limiter: %w", err)
		}
	}

	resp, err := c.doOnce(ctx, route, payload)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("dropbox: %s canceled: %w", route, ctx.Err())
		}

		return fmt.Errorf("dropbox: %s: %w", route, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("route", route),
			slog.Int("status", resp.StatusCode),
		)

		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("dropbox: decoding %s response: %w", route, err)
		}

		return nil
	}

	apiErr := c.buildAPIError(route, resp)

	c.logger.Debug("request failed",
		slog.String("route", route),
		slog.Int("status", resp.StatusCode),
		slog.String("summary", apiErr.Summary),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		c.auth.OnAuthFailure(ctx, resp.StatusCode)
	}

	return apiErr
}

// doOnce executes a single HTTP request.
func (c *Client) doOnce(ctx context.Context, route string, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+route, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	tok, err := c.auth.Token()
	if err != nil {
		return nil, fmt.Errorf("obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)

	switch {
	case c.opts.SelectUser != "":
		req.Header.Set(headerSelectUser, c.opts.SelectUser)
	case c.opts.SelectAdmin != "":
		req.Header.Set(headerSelectAdmin, c.opts.SelectAdmin)
	}

	return c.httpClient.Do(req)
}

// buildAPIError reads an error response and classifies it. Rate-limit
// responses that carry retry_after only in the body get a synthesized
// Retry-After header so retry policies need to look in one place.
func (c *Client) buildAPIError(route string, resp *http.Response) *APIError {
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if readErr != nil {
		raw = []byte("(failed to read response body)")
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Route:      route,
		Body:       string(raw),
		Header:     resp.Header.Clone(),
		Err:        classifyStatus(resp.StatusCode),
	}

	if apiErr.Header == nil {
		apiErr.Header = http.Header{}
	}

	var env errorEnvelope
	if json.Unmarshal(raw, &env) == nil {
		apiErr.Summary = env.ErrorSummary
		apiErr.Detail = env.Error
	}

	if resp.StatusCode == http.StatusTooManyRequests && apiErr.Header.Get("Retry-After") == "" && len(apiErr.Detail) > 0 {
		var rl rateLimitDetail
		if json.Unmarshal(apiErr.Detail, &rl) == nil && rl.RetryAfter > 0 {
			apiErr.Header.Set("Retry-After", strconv.Itoa(rl.RetryAfter))
		}
	}

	return apiErr
}
