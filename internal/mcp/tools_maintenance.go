package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerMaintenanceTools() {
	// ── cleanup_old_boards ─────────────────────────────
	s.mcp.AddTool(mcp.NewTool("cleanup_old_boards",
		mcp.WithDescription("DESTRUCTIVE: Delete every board not updated in the last N days"),
		mcp.WithNumber("days",
			mcp.Description("Age threshold in days (default 30)"),
		),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleCleanupOldBoards)

	// ── storage_usage ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("storage_usage",
		mcp.WithDescription("Report an estimate of storage used by boards"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleStorageUsage)

	// ── save_status ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_status",
		mcp.WithDescription("Report the status of the most recent save"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleSaveStatus)
}

func (s *Server) handleCleanupOldBoards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days := req.GetInt("days", 30)
	deleted, err := s.boards.CleanupOldBoards(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("cleanup boards: %w", err)
	}
	return textResult(fmt.Sprintf("Deleted %d board(s) older than %d days", deleted, days)), nil
}

func (s *Server) handleStorageUsage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, err := s.boards.StorageUsage(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage usage: %w", err)
	}
	if u == nil {
		return textResult("Storage usage is not available for this backend"), nil
	}
	return jsonResult(u)
}

func (s *Server) handleSaveStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.boards.SaveStatus())
}
