package app

import (
	"context"

	mcpserver "flowboard/internal/mcp"
)

// ServeMCP runs the board tools as an MCP server on stdin/stdout until the
// client disconnects or the process is interrupted. Cleanup still runs on its
// schedule when enabled.
func (a *App) ServeMCP(ctx context.Context, version string) error {
	if a.cfg.Cleanup.Enabled {
		sched := newCleanupScheduler(a)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	srv := mcpserver.New(mcpserver.Deps{
		Boards:  a.Boards,
		Logger:  a.logger.Named("mcp"),
		Version: version,
	})
	return srv.ServeStdio()
}
