// Package cli is the flowboard command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flowboard/internal/app"
	"flowboard/internal/config"
)

// Version information, set by main.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

type rootOptions struct {
	configPath string
	jsonOutput bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "flowboard",
		Short: "flowboard - persistence and import/export for node-graph boards",
		Long: `flowboard stores node-graph boards (positioned nodes connected by edges)
in SQLite, MySQL, PostgreSQL, MongoDB or Redis, and moves them in and out as
versioned JSON documents.

It can run as an HTTP API, as an MCP server for AI agents, or be driven
directly from this command line.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to flowboard.yml (default ./flowboard.yml if present)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	root.AddCommand(
		newServeCmd(opts),
		newMCPCmd(opts),
		newListCmd(opts),
		newShowCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newDeleteCmd(opts),
		newCheckNameCmd(opts),
		newCleanupCmd(opts),
		newUsageCmd(opts),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	if _, reported := err.(*ExitError); !reported {
		p := printer{out: root.OutOrStdout(), err: root.ErrOrStderr()}
		p.Error(exitCodeFor(err), "Error", err.Error())
	}
	return exitCodeFor(err)
}

// withApp loads configuration, builds the app and hands it to fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app.App, p printer) error) error {
	p := printer{out: cmd.OutOrStdout(), err: cmd.ErrOrStderr()}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return p.Error(ExitUsage, "Invalid configuration", err.Error(),
			"Check the file passed with --config", "Check FLOWBOARD_* environment variables")
	}

	logger, err := cfg.Log.Logger()
	if err != nil {
		return p.Error(ExitUsage, "Invalid configuration", err.Error())
	}
	defer logger.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.Shutdown()

	return fn(ctx, a, p)
}
