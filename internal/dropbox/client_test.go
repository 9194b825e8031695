package dropbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth is a test Authenticator that returns a fixed token and counts
// authorization failures.
type fakeAuth struct {
	token    string
	err      error
	failures atomic.Int32
	statuses []int
}

func (f *fakeAuth) Token() (string, error) {
	return f.token, f.err
}

func (f *fakeAuth) OnAuthFailure(_ context.Context, status int) {
	f.failures.Add(1)
	f.statuses = append(f.statuses, status)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, url string, auth Authenticator, opts Options) *Client {
	t.Helper()

	return NewClient(url, http.DefaultClient, auth, opts, discardLogger())
}

// writeError writes a Dropbox-style error envelope.
func writeError(w http.ResponseWriter, status int, summary string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error_summary":"` + summary + `","error":` + detail + `}`))
}

func TestRPC_SendsHeadersAndBody(t *testing.T) {
	var gotAuth, gotType, gotUser, gotAdmin, gotUA, gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotUser = r.Header.Get(headerSelectUser)
		gotAdmin = r.Header.Get(headerSelectAdmin)
		gotUA = r.Header.Get("User-Agent")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_, _ = w.Write([]byte(`{"metadata":{"id":"id:1","name":"Proj1","path_lower":"/proj1","path_display":"/Proj1"}}`))
	}))
	defer srv.Close()

	auth := &fakeAuth{token: "tok-1"}
	client := newTestClient(t, srv.URL, auth, Options{SelectUser: "dbmid:abc"})

	meta, err := client.CreateFolder(context.Background(), "/Proj1")
	require.NoError(t, err)

	assert.Equal(t, "/files/create_folder_v2", gotPath)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "dbmid:abc", gotUser)
	assert.Empty(t, gotAdmin)
	assert.Equal(t, userAgent, gotUA)
	assert.Equal(t, "/Proj1", gotBody["path"])
	assert.Equal(t, false, gotBody["autorename"])

	assert.Equal(t, "id:1", meta.ID)
	assert.Equal(t, "/Proj1", meta.PathDisplay)
}

func TestRPC_SelectAdminHeader(t *testing.T) {
	var gotAdmin string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAdmin = r.Header.Get(headerSelectAdmin)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeAuth{token: "t"}, Options{SelectAdmin: "dbmid:admin", UserAgent: "custom/1"})
	require.NoError(t, client.RPC(context.Background(), "/check/user", map[string]string{}, nil))
	assert.Equal(t, "dbmid:admin", gotAdmin)
}

func TestRPC_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"bad request", http.StatusBadRequest, ErrBadRequest},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"conflict", http.StatusConflict, ErrConflict},
		{"throttled", http.StatusTooManyRequests, ErrThrottled},
		{"server error", http.StatusServiceUnavailable, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, tt.status, "some/summary/..", `{".tag":"some"}`)
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL, &fakeAuth{token: "t"}, Options{})
			_, err := client.CreateFolder(context.Background(), "/x")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.status, apiErr.HTTPStatus())
			assert.Equal(t, "some/summary/..", apiErr.Summary)
			assert.Equal(t, routeCreateFolder, apiErr.Route)
			assert.JSONEq(t, `{".tag":"some"}`, string(apiErr.Detail))
		})
	}
}

func TestRPC_PlainTextErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Error in call to API function: bad input"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeAuth{token: "t"}, Options{})
	_, err := client.CreateFolder(context.Background(), "/x")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Empty(t, apiErr.Summary)
	assert.Contains(t, apiErr.Error(), "bad input")
}

func TestRPC_UnauthorizedNotifiesAuthenticatorOnce(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusUnauthorized, "expired_access_token/..", `{".tag":"expired_access_token"}`)
	}))
	defer srv.Close()

	auth := &fakeAuth{token: "stale"}
	client := newTestClient(t, srv.URL, auth, Options{})

	_, err := client.CreateFolder(context.Background(), "/x")
	require.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, int32(1), calls.Load(), "the failed call is not replayed")
	assert.Equal(t, int32(1), auth.failures.Load())
	assert.Equal(t, []int{http.StatusUnauthorized}, auth.statuses)
}

func TestRPC_OtherErrorsDoNotNotifyAuthenticator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusConflict, "path/conflict/folder/..", `{".tag":"path"}`)
	}))
	defer srv.Close()

	auth := &fakeAuth{token: "t"}
	client := newTestClient(t, srv.URL, auth, Options{})

	_, err := client.CreateFolder(context.Background(), "/x")
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int32(0), auth.failures.Load())
}

func TestRPC_RetryAfterHeaderPreserved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "15")
		writeError(w, http.StatusTooManyRequests, "too_many_requests/..", `{"reason":{".tag":"too_many_requests"},"retry_after":99}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeAuth{token: "t"}, Options{})
	_, err := client.CreateFolder(context.Background(), "/x")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "15", apiErr.ResponseHeader().Get("Retry-After"))
}

func TestRPC_RetryAfterFromBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusTooManyRequests, "too_many_requests/..", `{"reason":{".tag":"too_many_requests"},"retry_after":42}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeAuth{token: "t"}, Options{})
	_, err := client.CreateFolder(context.Background(), "/x")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "42", apiErr.Header.Get("Retry-After"))
}

func TestRPC_TokenError(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeAuth{err: ErrNoAccessToken}, Options{})
	_, err := client.CreateFolder(context.Background(), "/x")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoAccessToken)
	assert.Equal(t, int32(0), calls.Load())
}

func TestRPC_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := newTestClient(t, url, &fakeAuth{token: "t"}, Options{})
	_, err := client.CreateFolder(context.Background(), "/x")

	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestRPC_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, srv.URL, &fakeAuth{token: "t"}, Options{RequestsPerSecond: 5})
	err := client.RPC(ctx, "/x", struct{}{}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRPC_Paced(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeAuth{token: "t"}, Options{RequestsPerSecond: 1000})
	require.NotNil(t, client.limiter)

	for range 3 {
		require.NoError(t, client.RPC(context.Background(), "/x", struct{}{}, nil))
	}

	assert.Equal(t, int32(3), calls.Load())
}

func TestRPC_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeAuth{token: "t"}, Options{})
	_, err := client.CreateFolder(context.Background(), "/x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}
