package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/zapnorok/FileStructureAutomator/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagEnvFile    string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
	flagMaxRetries int
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
var resolvedCfg *config.Resolved

// defaultRequestTimeout is used when no configuration has been loaded.
const defaultRequestTimeout = 30 * time.Second

// newHTTPClient returns an HTTP client bounded by the configured per-request
// timeout.
func newHTTPClient() *http.Client {
	timeout := defaultRequestTimeout
	if resolvedCfg != nil && resolvedCfg.RequestTimeout > 0 {
		timeout = resolvedCfg.RequestTimeout
	}

	return &http.Client{Timeout: timeout}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fsa",
		Short: "Dropbox folder structure provisioner",
		Long: "Creates a client root folder in Dropbox, fills it with the standard " +
			"folder template, and returns a shared link to it.",
		Version: version,
		// Silence Cobra's default error/usage printing; main reports errors.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "dotenv file with credentials (default: ./.env if present)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.PersistentFlags().IntVar(&flagMaxRetries, "max-retries", 0, "retries after a rate-limited call (overrides retry.max_attempts)")

	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newTemplateCmd())
	cmd.AddCommand(newRefreshCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig seeds the environment from the dotenv file, resolves the
// effective configuration, and stores the result in resolvedCfg.
func loadConfig(cmd *cobra.Command) error {
	if err := config.LoadEnvFile(flagEnvFile); err != nil {
		return err
	}

	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	// Only pass --max-retries to the resolver if the user explicitly set it.
	if cmd.Flags().Changed("max-retries") {
		attempts := flagMaxRetries
		cli.MaxAttempts = &attempts
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), config.ReadCredentials(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates an slog.Logger writing to stderr, configured by the
// resolved config and CLI flags.
func buildLogger() *slog.Logger {
	fd := os.Stderr.Fd()

	return newLogger(os.Stderr, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

// newLogger picks level and handler. Config-file log level provides the
// baseline; --verbose and --quiet override it. log_format "auto" means text
// on a terminal and JSON otherwise.
func newLogger(w io.Writer, terminal bool) *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	if resolvedCfg != nil {
		switch resolvedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = resolvedCfg.LogFormat
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" || (format == "auto" && !terminal) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
