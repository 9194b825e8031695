package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/zapnorok/FileStructureAutomator/internal/dropbox"
	"github.com/zapnorok/FileStructureAutomator/internal/retry"
)

// Terminal outcomes of a provisioning run. Use errors.Is to check.
var (
	// ErrNameConflict means the root folder, or a folder in the template,
	// already exists. Nothing is overwritten.
	ErrNameConflict = errors.New("provision: a folder with the given name already exists")
	// ErrAuthExpired means the access token was rejected. A refresh has been
	// attempted; the failed call was not replayed.
	ErrAuthExpired = errors.New("provision: access token expired")
	// ErrRetriesExhausted means the API kept rate limiting past the retry budget.
	ErrRetriesExhausted = retry.ErrRetriesExhausted
	// ErrInvalidName means the requested root name cannot be used as a folder name.
	ErrInvalidName = errors.New("provision: invalid root name")
)

// RemoteError is any other failure talking to the storage API: a non-2xx
// status without special handling, or a transport failure (StatusCode 0).
type RemoteError struct {
	Op         string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("provision: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// classify maps an error from a policy-wrapped storage call to the
// provisioning taxonomy. Conflicts are handled by callers before this point
// because their meaning depends on the operation.
func classify(op, path string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("provision: %s %s: %w", op, path, err)
	case errors.Is(err, retry.ErrRetriesExhausted):
		return fmt.Errorf("provision: %s %s: %w", op, path, err)
	case errors.Is(err, dropbox.ErrUnauthorized):
		return fmt.Errorf("provision: %s %s: %w: %w", op, path, ErrAuthExpired, err)
	}

	remote := &RemoteError{Op: op, Path: path, Err: err}

	var apiErr *dropbox.APIError
	if errors.As(err, &apiErr) {
		remote.StatusCode = apiErr.StatusCode
		remote.Body = apiErr.Body
	}

	return remote
}
