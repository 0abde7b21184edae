package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"flowboard/internal/domain"
)

func (s *Server) registerTransferTools() {
	// ── export_board ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("export_board",
		mcp.WithDescription("Export a board as a versioned JSON document"),
		mcp.WithString("boardId",
			mcp.Description("ID of the board to export"),
			mcp.Required(),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleExportBoard)

	// ── import_board ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("import_board",
		mcp.WithDescription("Validate an exported JSON document and save it as a new board"),
		mcp.WithString("document",
			mcp.Description("Exported board JSON (must carry version and nodes)"),
			mcp.Required(),
		),
		mcp.WithString("name",
			mcp.Description("Name for the new board"),
			mcp.Required(),
		),
		mcp.WithString("description",
			mcp.Description("Optional description"),
		),
	), s.handleImportBoard)

	// ── merge_into_board ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("merge_into_board",
		mcp.WithDescription("Preview merging an exported document into an existing board. Colliding node ids are renamed; nothing is saved."),
		mcp.WithString("boardId",
			mcp.Description("ID of the target board"),
			mcp.Required(),
		),
		mcp.WithString("document",
			mcp.Description("Exported board JSON to merge"),
			mcp.Required(),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleMergeIntoBoard)
}

func (s *Server) handleExportBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(req, "boardId")
	if err != nil {
		return nil, err
	}
	text, err := s.boards.ExportBoardAsJSON(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("export board: %w", err)
	}
	return textResult(text), nil
}

func (s *Server) handleImportBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := requireString(req, "document")
	if err != nil {
		return nil, err
	}
	name, err := requireString(req, "name")
	if err != nil {
		return nil, err
	}
	id, err := s.boards.ImportBoardFromJSON(ctx, doc, name, req.GetString("description", ""))
	if err != nil {
		return nil, fmt.Errorf("import board: %w", err)
	}
	return jsonResult(map[string]string{"boardId": id})
}

func (s *Server) handleMergeIntoBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(req, "boardId")
	if err != nil {
		return nil, err
	}
	doc, err := requireString(req, "document")
	if err != nil {
		return nil, err
	}

	target, err := s.boards.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	if target == nil {
		return nil, &domain.NotFoundError{ID: id}
	}
	existing := make(map[string]domain.Node, len(target.Nodes))
	for _, n := range target.Nodes {
		existing[n.ID] = n
	}

	g, err := s.boards.MergeImport(ctx, doc, existing)
	if err != nil {
		return nil, fmt.Errorf("merge board: %w", err)
	}
	return jsonResult(g)
}
