package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zapnorok/FileStructureAutomator/internal/config"
	"github.com/zapnorok/FileStructureAutomator/internal/dropbox"
	"github.com/zapnorok/FileStructureAutomator/internal/tokenfile"
)

// session bundles the authenticated Dropbox stack shared by commands that
// talk to the API.
type session struct {
	tokens *dropbox.TokenManager
	client *dropbox.Client
	logger *slog.Logger
}

// newSession builds the token manager and API client from cfg. A refresh
// token persisted by an earlier run is preferred over the environment value.
// Without an initial access token, one exchange runs before returning.
func newSession(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) (*session, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	creds := dropbox.Credentials{
		AccessToken:  cfg.Credentials.AccessToken,
		RefreshToken: cfg.Credentials.RefreshToken,
		ClientID:     cfg.Credentials.ClientID,
		ClientSecret: cfg.Credentials.ClientSecret,
	}

	tokenPath := cfg.Dropbox.TokenFile
	if tokenPath != "" {
		creds.RefreshToken = persistedRefreshToken(tokenPath, creds, logger)
	}

	httpClient := newHTTPClient()
	tokens := dropbox.NewTokenManager(creds, cfg.Dropbox.TokenURL, httpClient, logger)

	if tokenPath != "" {
		tokens.OnRefresh(func(c dropbox.Credentials) {
			if c.RefreshToken == "" {
				return
			}

			if err := tokenfile.Save(tokenPath, c.ClientID, c.RefreshToken); err != nil {
				logger.Warn("failed to persist refresh token",
					slog.String("path", tokenPath),
					slog.String("error", err.Error()),
				)
			}
		})
	}

	if !tokens.HasAccessToken() {
		logger.Debug("no access token supplied, exchanging refresh token")

		if err := tokens.EnsureValidToken(ctx); err != nil {
			return nil, fmt.Errorf("obtaining access token: %w", err)
		}
	}

	client := dropbox.NewClient(cfg.Dropbox.APIURL, httpClient, tokens, dropbox.Options{
		SelectUser:        cfg.Dropbox.SelectUser,
		SelectAdmin:       cfg.Dropbox.SelectAdmin,
		RequestsPerSecond: cfg.RequestsPerSecond,
		UserAgent:         cfg.UserAgent,
	}, logger)

	return &session{tokens: tokens, client: client, logger: logger}, nil
}

// persistedRefreshToken returns the saved refresh token for this app, or the
// environment value when none is saved. Read errors are logged and ignored.
func persistedRefreshToken(path string, creds dropbox.Credentials, logger *slog.Logger) string {
	tf, err := tokenfile.Load(path)
	if err != nil {
		logger.Warn("ignoring unreadable token file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return creds.RefreshToken
	}

	if saved := tf.RefreshToken(creds.ClientID); saved != "" {
		logger.Debug("using persisted refresh token", slog.String("path", path))
		return saved
	}

	return creds.RefreshToken
}
