package cli

import (
	"context"

	"github.com/spf13/cobra"

	"flowboard/internal/app"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the board HTTP API on http.addr.

When cleanup.enabled is set, stale boards are removed on cleanup.schedule.
When import.inbox_dir is set, JSON documents dropped there are imported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, p printer) error {
				return a.Serve(ctx)
			})
		},
	}
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP server on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, p printer) error {
				return a.ServeMCP(ctx, version)
			})
		},
	}
}
