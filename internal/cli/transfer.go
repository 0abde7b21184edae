package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"flowboard/internal/app"
	"flowboard/internal/domain"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <board-id>",
		Short: "Export a board as a versioned JSON document",
		Long: `Export a board as a versioned JSON document.

Examples:
  # Print to stdout
  flowboard export board-0190f1c2

  # Write to a file
  flowboard export board-0190f1c2 -o roadmap.json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, p printer) error {
				text, err := a.Boards.ExportBoardAsJSON(ctx, args[0])
				if errors.Is(err, domain.ErrNotFound) {
					return notFound(p, args[0])
				}
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					p.Printf("%s\n", text)
					return nil
				}
				if err := os.WriteFile(output, []byte(text+"\n"), 0644); err != nil {
					return p.Error(ExitGeneral, "Could not write export", err.Error())
				}
				p.Success("Exported %s to %s", args[0], output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import an exported JSON document as a new board",
		Long: `Import an exported JSON document as a new board.

The board name defaults to the file name without its extension.

Examples:
  flowboard import roadmap.json
  flowboard import roadmap.json --name "Roadmap (copy)"
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, p printer) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return p.Error(ExitUsage, "Could not read file", err.Error())
				}
				if name == "" {
					name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				}

				id, err := a.Boards.ImportBoardFromJSON(ctx, string(data), name, description)
				if errors.Is(err, domain.ErrSchema) {
					return p.Error(ExitDataErr, "Invalid board document", err.Error(),
						"Documents need a version string and a nodes array")
				}
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(p, map[string]string{"boardId": id})
				}
				p.Success("Imported %s as %s (%s)", args[0], name, id)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Name for the new board")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description for the new board")
	return cmd
}
