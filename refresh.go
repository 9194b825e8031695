package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zapnorok/FileStructureAutomator/internal/config"
)

// refreshJSONOutput is the JSON output schema for the refresh command. Token
// values are never printed.
type refreshJSONOutput struct {
	Refreshed bool   `json:"refreshed"`
	TokenFile string `json:"token_file,omitempty"`
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		Long: "Performs one refresh-token exchange to verify the app credentials. A " +
			"rotated refresh token is saved to the token file.",
		Args: cobra.NoArgs,
		RunE: runRefresh,
	}
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	ctx, stop := shutdownContext(cmd.Context(), logger)
	defer stop()

	// Drop any supplied access token so the session always exchanges.
	cfg := *resolvedCfg
	cfg.Credentials.AccessToken = ""

	if cfg.Credentials.RefreshToken == "" {
		return fmt.Errorf("refresh requires %s", config.EnvRefreshToken)
	}

	if _, err := newSession(ctx, &cfg, logger); err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		return enc.Encode(refreshJSONOutput{Refreshed: true, TokenFile: cfg.Dropbox.TokenFile})
	}

	statusf("Access token refreshed.\n")

	return nil
}
