package dropbox

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// refreshKey is the singleflight key for the refresh-token exchange. There is
// only ever one credential set, so one key suffices.
const refreshKey = "refresh"

// Credentials is the full credential set for one Dropbox app + account.
// Never log these values.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ClientID     string
	ClientSecret string
}

// TokenManager exclusively owns the Credentials. Reads go through Token;
// writes happen only inside a refresh exchange. Refreshes are reactive: the
// manager never inspects expiry and exchanges only when asked to, either
// directly via EnsureValidToken or after a 401 via OnAuthFailure.
type TokenManager struct {
	mu    sync.RWMutex
	creds Credentials

	oauth      *oauth2.Config
	httpClient *http.Client
	group      singleflight.Group
	logger     *slog.Logger

	// onRefresh is called with a snapshot after every successful exchange,
	// outside the lock. Used to persist rotated refresh tokens.
	onRefresh func(Credentials)
}

// NewTokenManager creates a TokenManager that exchanges refresh tokens at
// tokenURL (typically DefaultTokenURL).
func NewTokenManager(creds Credentials, tokenURL string, httpClient *http.Client, logger *slog.Logger) *TokenManager {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &TokenManager{
		creds: creds,
		oauth: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL: tokenURL,
				// Dropbox accepts client credentials in the form body.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		logger:     logger,
	}
}

// OnRefresh registers fn to be called after each successful exchange.
func (m *TokenManager) OnRefresh(fn func(Credentials)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onRefresh = fn
}

// Token returns the current access token.
func (m *TokenManager) Token() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.creds.AccessToken == "" {
		return "", ErrNoAccessToken
	}

	return m.creds.AccessToken, nil
}

// HasAccessToken reports whether an access token is currently held.
func (m *TokenManager) HasAccessToken() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.creds.AccessToken != ""
}

// Credentials returns a snapshot of the current credential set.
func (m *TokenManager) Credentials() Credentials {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.creds
}

// EnsureValidToken performs a refresh-token exchange. Concurrent callers
// share a single in-flight exchange. On failure the stale credentials stay
// in place and the error is returned after being logged.
func (m *TokenManager) EnsureValidToken(ctx context.Context) error {
	_, err, shared := m.group.Do(refreshKey, func() (any, error) {
		return nil, m.refresh(ctx)
	})

	if shared {
		m.logger.Debug("joined in-flight token refresh")
	}

	return err
}

// OnAuthFailure triggers a synchronous refresh when status is 401. Other
// statuses are ignored. Refresh errors are logged, not returned: the caller's
// own request has already failed and is surfaced by the caller.
func (m *TokenManager) OnAuthFailure(ctx context.Context, status int) {
	if status != http.StatusUnauthorized {
		return
	}

	m.logger.Info("access token rejected, refreshing")

	if err := m.EnsureValidToken(ctx); err != nil {
		m.logger.Warn("token refresh after 401 failed", slog.String("error", err.Error()))
	}
}

// refresh runs one refresh-token grant and installs the result.
func (m *TokenManager) refresh(ctx context.Context) error {
	m.mu.RLock()
	refreshToken := m.creds.RefreshToken
	m.mu.RUnlock()

	if refreshToken == "" {
		m.logger.Warn("cannot refresh access token", slog.String("error", ErrNoRefreshToken.Error()))
		return ErrNoRefreshToken
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	// An empty access token is never valid, so Token() always performs the
	// exchange. The oauth2 package keeps the old refresh token when the
	// provider does not rotate it.
	tok, err := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		m.logger.Warn("failed to obtain new access token", slog.String("error", err.Error()))
		return fmt.Errorf("dropbox: refreshing access token: %w", err)
	}

	m.mu.Lock()
	m.creds.AccessToken = tok.AccessToken
	rotated := tok.RefreshToken != "" && tok.RefreshToken != refreshToken
	if rotated {
		m.creds.RefreshToken = tok.RefreshToken
	}
	snapshot := m.creds
	onRefresh := m.onRefresh
	m.mu.Unlock()

	m.logger.Info("new access token obtained",
		slog.Time("expiry", tok.Expiry),
		slog.Bool("refresh_token_rotated", rotated),
	)

	if onRefresh != nil {
		onRefresh(snapshot)
	}

	return nil
}
