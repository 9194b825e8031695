// Package retry implements the bounded retry-with-delay policy shared by
// folder creation and shared-link creation. Only rate-limit responses are
// retried; every other outcome is handed back to the caller unchanged.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Policy defaults.
const (
	DefaultMaxAttempts = 3
	DefaultRetryAfter  = 300 * time.Second
)

// ErrRetriesExhausted is returned once a rate-limited operation has been
// retried MaxAttempts times and the server is still throttling.
var ErrRetriesExhausted = errors.New("retry: retries exhausted")

// StatusError is implemented by errors that carry an HTTP response status and
// its headers. Defined here at the consumer; dropbox.APIError satisfies it.
type StatusError interface {
	error
	HTTPStatus() int
	ResponseHeader() http.Header
}

// Policy retries an operation on HTTP 429 up to MaxAttempts times, waiting
// the server-supplied Retry-After between attempts. A Policy holds no
// per-call state, so one value can be shared by every caller.
type Policy struct {
	MaxAttempts  int
	DefaultDelay time.Duration
	Logger       *slog.Logger

	// sleepFunc waits between attempts. Tests override it to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewPolicy returns a Policy. Negative maxAttempts disables retries; a
// non-positive defaultDelay falls back to DefaultRetryAfter.
func NewPolicy(maxAttempts int, defaultDelay time.Duration, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}

	if maxAttempts < 0 {
		maxAttempts = 0
	}

	if defaultDelay <= 0 {
		defaultDelay = DefaultRetryAfter
	}

	return &Policy{
		MaxAttempts:  maxAttempts,
		DefaultDelay: defaultDelay,
		Logger:       logger,
		sleepFunc:    timeSleep,
	}
}

// WithSleep returns a copy of p that waits with fn instead of a real timer.
func (p *Policy) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Policy {
	cp := *p
	cp.sleepFunc = fn

	return &cp
}

// ShouldRetry reports whether a response with the given status may be
// retried after attempt retries have already been spent.
func ShouldRetry(status, attempt, maxAttempts int) bool {
	return status == http.StatusTooManyRequests && attempt < maxAttempts
}

// NextDelay reads the Retry-After header as whole seconds. A missing,
// unparsable or negative value yields def.
func NextDelay(h http.Header, def time.Duration) time.Duration {
	if h == nil {
		return def
	}

	raw := strings.TrimSpace(h.Get("Retry-After"))
	if raw == "" {
		return def
	}

	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return def
	}

	return time.Duration(seconds) * time.Second
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempt budget runs out. The attempt counter lives on this call's stack:
// it starts at zero for every invocation and is discarded on return.
//
// On exhaustion the returned error wraps both ErrRetriesExhausted and the
// last error from op.
func (p *Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	sleep := p.sleepFunc
	if sleep == nil {
		sleep = timeSleep
	}

	var attempt int
	for {
		err := op(ctx)
		if err == nil {
			if attempt > 0 {
				p.Logger.Info("operation succeeded after retries",
					slog.String("op", name),
					slog.Int("retries", attempt),
				)
			}

			return nil
		}

		var se StatusError
		if !errors.As(err, &se) || se.HTTPStatus() != http.StatusTooManyRequests {
			return err
		}

		if !ShouldRetry(se.HTTPStatus(), attempt, p.MaxAttempts) {
			p.Logger.Error("rate limit retries exhausted",
				slog.String("op", name),
				slog.Int("retries", attempt),
			)

			return fmt.Errorf("%w after %d retries: %w", ErrRetriesExhausted, attempt, err)
		}

		delay := NextDelay(se.ResponseHeader(), p.DefaultDelay)
		attempt++

		p.Logger.Warn("rate limit exceeded, retrying",
			slog.String("op", name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.MaxAttempts),
			slog.Duration("delay", delay),
		)

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return fmt.Errorf("retry: %s canceled: %w", name, sleepErr)
		}
	}
}

// timeSleep waits for d or until ctx is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
