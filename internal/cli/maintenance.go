package cli

import (
	"context"

	"github.com/spf13/cobra"

	"flowboard/internal/app"
	"flowboard/internal/httpapi"
)

func newCleanupCmd(opts *rootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete boards not updated in the last N days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, p printer) error {
				p.Step("Removing boards older than %d days", days)
				deleted, err := a.Boards.CleanupOldBoards(ctx, days)
				if err != nil {
					if deleted > 0 {
						p.Warning("%d board(s) were deleted before the failure", deleted)
					}
					return err
				}
				if opts.jsonOutput {
					return writeJSON(p, map[string]int{"deleted": deleted})
				}
				p.Success("Deleted %d board(s)", deleted)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Age threshold in days")
	return cmd
}

func newUsageCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show an estimate of storage used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, p printer) error {
				u, err := a.Boards.StorageUsage(ctx)
				if err != nil {
					return err
				}
				resp := httpapi.NewUsageResponse(u)
				if opts.jsonOutput {
					return writeJSON(p, resp)
				}
				if !resp.Available {
					p.Warning("Storage usage is not available for this backend")
					return nil
				}
				p.Printf("used:  %d bytes\n", resp.Used)
				if resp.Quota > 0 {
					p.Printf("quota: %d bytes (%.1f%% used)\n", resp.Quota, resp.Percent)
				}
				return nil
			})
		},
	}
}
