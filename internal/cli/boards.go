package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"flowboard/internal/app"
	"flowboard/internal/domain"
	"flowboard/internal/query"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var search, sortBy, order string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved boards",
		Long: `List saved boards, newest first by default.

Examples:
  # Human-readable table
  flowboard list

  # Filter and sort
  flowboard list --search roadmap --sort name --order asc

  # JSON output for scripts
  flowboard list --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, p printer) error {
				key, err := query.ParseSortKey(sortBy)
				if err != nil {
					return p.Error(ExitUsage, "Invalid --sort", err.Error(), "Use one of: name, createdAt, updatedAt")
				}
				ord, err := query.ParseOrder(order)
				if err != nil {
					return p.Error(ExitUsage, "Invalid --order", err.Error(), "Use asc or desc")
				}

				items, err := a.Boards.ListBoards(ctx, query.Options{Search: search, SortBy: key, Order: ord})
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(p, items)
				}
				if len(items) == 0 {
					p.Printf("No boards found\n")
					return nil
				}

				tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tNODES\tEDGES\tUPDATED")
				for _, it := range items {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", it.BoardID, it.Name, it.NodeCount, it.EdgeCount, it.UpdatedAt)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter on name and description (case-insensitive)")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort key: name, createdAt or updatedAt")
	cmd.Flags().StringVar(&order, "order", "", "Sort order: asc or desc")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <board-id>",
		Short: "Show a board with its nodes and edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, p printer) error {
				board, err := a.Boards.GetBoard(ctx, args[0])
				if err != nil {
					return err
				}
				if board == nil {
					return notFound(p, args[0])
				}
				if opts.jsonOutput {
					return writeJSON(p, board)
				}
				p.Printf("%s  %s\n", board.BoardID, board.Name)
				if board.Description != "" {
					p.Printf("%s\n", board.Description)
				}
				p.Printf("nodes: %d  edges: %d\n", board.Metadata.NodeCount, board.Metadata.EdgeCount)
				p.Printf("created: %s  updated: %s\n", board.CreatedAt, board.UpdatedAt)
				return nil
			})
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <board-id>",
		Short: "Delete a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, p printer) error {
				if err := a.Boards.DeleteBoard(ctx, args[0]); err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(p, map[string]string{"deleted": args[0]})
				}
				p.Success("Deleted board %s", args[0])
				return nil
			})
		},
	}
}

func newCheckNameCmd(opts *rootOptions) *cobra.Command {
	var exclude string

	cmd := &cobra.Command{
		Use:   "check-name <name>",
		Short: "Check whether a board name is taken",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, p printer) error {
				exists, err := a.Boards.IsBoardNameExists(ctx, args[0], exclude)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(p, map[string]bool{"exists": exists})
				}
				if exists {
					p.Warning("A board named %q already exists", args[0])
				} else {
					p.Success("%q is available", args[0])
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&exclude, "exclude", "", "Board id to ignore, e.g. the board being renamed")
	return cmd
}

func notFound(p printer, id string) error {
	return p.Error(ExitNotFound, "Board not found", (&domain.NotFoundError{ID: id}).Error(),
		"Run 'flowboard list' to see available boards")
}

func writeJSON(p printer, v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
