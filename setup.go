package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zapnorok/FileStructureAutomator/internal/provision"
	"github.com/zapnorok/FileStructureAutomator/internal/retry"
)

// setupJSONOutput is the JSON output schema for the setup command.
type setupJSONOutput struct {
	Name string `json:"name"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup <name words...>",
		Short: "Create a client folder structure and print its shared link",
		Long: "Creates /<name> in Dropbox with every folder from the template and prints " +
			"a shared link to it. Multiple words are joined with dashes, so " +
			"\"setup Acme Corp\" creates /Acme-Corp.",
		Args: cobra.MinimumNArgs(1),
		RunE: runSetup,
	}
}

// rootNameFromArgs joins command words into a single folder name.
func rootNameFromArgs(args []string) string {
	return strings.Join(args, "-")
}

func runSetup(cmd *cobra.Command, args []string) error {
	name := rootNameFromArgs(args)
	logger := buildLogger()

	ctx, stop := shutdownContext(cmd.Context(), logger)
	defer stop()

	if resolvedCfg.ProvisionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, resolvedCfg.ProvisionTimeout)
		defer cancel()
	}

	sess, err := newSession(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}

	p := newProvisioner(sess, logger)

	url, err := p.Provision(ctx, name)
	if err != nil {
		return setupError(name, err, logger)
	}

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		normalized, _ := provision.NormalizeName(name)

		return enc.Encode(setupJSONOutput{
			Name: normalized,
			Path: provision.RootPath(normalized),
			URL:  url,
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), url)

	return nil
}

// newProvisioner wires the configured template, retry policy, and a
// stderr progress reporter onto sess.
func newProvisioner(sess *session, logger *slog.Logger) *provision.Provisioner {
	return provision.New(sess.client, provision.Options{
		Template: resolvedCfg.Template,
		Policy:   retry.NewPolicy(resolvedCfg.MaxAttempts, resolvedCfg.RetryAfter, logger),
		Reporter: provision.ReporterFunc(func(msg string) {
			statusf("%s\n", msg)
		}),
		Logger: logger,
	})
}

// setupError turns a provisioning failure into the message shown to the
// requester. The full error is always logged.
func setupError(name string, err error, logger *slog.Logger) error {
	switch {
	case errors.Is(err, provision.ErrInvalidName):
		return err
	case errors.Is(err, provision.ErrNameConflict):
		return fmt.Errorf("a folder named %q already exists in Dropbox: %w", name, err)
	case errors.Is(err, provision.ErrAuthExpired):
		return fmt.Errorf("access token rejected by Dropbox; it has been refreshed, run setup again: %w", err)
	case errors.Is(err, provision.ErrRetriesExhausted):
		return fmt.Errorf("Dropbox is rate limiting requests, try again later: %w", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("setup of %q interrupted: %w", name, err)
	}

	logger.Error("setup failed", slog.String("root", name), slog.String("error", err.Error()))

	return fmt.Errorf("an error occurred creating the folder structure for %q, check the logs for details", name)
}
