package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"flowboard/internal/domain"
	"flowboard/internal/query"
	"flowboard/internal/service"
)

func (s *Server) registerBoardTools() {
	// ── list_boards ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_boards",
		mcp.WithDescription("List saved boards with node and edge counts"),
		mcp.WithString("search",
			mcp.Description("Case-insensitive filter on name and description"),
		),
		mcp.WithString("sortBy",
			mcp.Description("name, createdAt or updatedAt (default updatedAt)"),
			mcp.Enum("name", "createdAt", "updatedAt"),
		),
		mcp.WithString("order",
			mcp.Description("asc or desc (default desc)"),
			mcp.Enum("asc", "desc"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListBoards)

	// ── get_board ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_board",
		mcp.WithDescription("Get a board with its nodes, edges and metadata"),
		mcp.WithString("boardId",
			mcp.Description("ID of the board"),
			mcp.Required(),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetBoard)

	// ── save_board ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_board",
		mcp.WithDescription("Create a board, or replace one when boardId is given"),
		mcp.WithString("boardId",
			mcp.Description("ID of the board to replace; omit to create"),
		),
		mcp.WithString("name",
			mcp.Description("Board name"),
			mcp.Required(),
		),
		mcp.WithString("description",
			mcp.Description("Optional description"),
		),
		mcp.WithString("nodes",
			mcp.Description(`JSON array of nodes: [{"id","type","position":{"x","y"},"size":{"width","height"},"data":{}}]`),
			mcp.Required(),
		),
		mcp.WithString("edges",
			mcp.Description(`JSON array of edges: [{"id","source","target"}]`),
		),
	), s.handleSaveBoard)

	// ── check_board_name ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("check_board_name",
		mcp.WithDescription("Check whether a board name is already taken"),
		mcp.WithString("name",
			mcp.Description("Name to check"),
			mcp.Required(),
		),
		mcp.WithString("excludeBoardId",
			mcp.Description("Board to ignore, usually the one being renamed"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleCheckBoardName)

	// ── delete_board ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_board",
		mcp.WithDescription("DESTRUCTIVE: Permanently delete a board"),
		mcp.WithString("boardId",
			mcp.Description("ID of the board to delete"),
			mcp.Required(),
		),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBoard)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListBoards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sortBy, err := query.ParseSortKey(req.GetString("sortBy", ""))
	if err != nil {
		return nil, err
	}
	order, err := query.ParseOrder(req.GetString("order", ""))
	if err != nil {
		return nil, err
	}
	items, err := s.boards.ListBoards(ctx, query.Options{
		Search: req.GetString("search", ""),
		SortBy: sortBy,
		Order:  order,
	})
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return jsonResult(items)
}

func (s *Server) handleGetBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(req, "boardId")
	if err != nil {
		return nil, err
	}
	board, err := s.boards.GetBoard(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	if board == nil {
		return nil, &domain.NotFoundError{ID: id}
	}
	return jsonResult(board)
}

func (s *Server) handleSaveBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := requireString(req, "name")
	if err != nil {
		return nil, err
	}
	save := service.SaveRequest{
		BoardID:     req.GetString("boardId", ""),
		Name:        name,
		Description: req.GetString("description", ""),
		Edges:       []domain.Edge{},
	}
	if err := parseJSON(req.GetString("nodes", ""), &save.Nodes); err != nil {
		return nil, fmt.Errorf("nodes must be a JSON array: %w", err)
	}
	if err := optionalJSON(req, "edges", &save.Edges); err != nil {
		return nil, err
	}

	id, err := s.boards.Save(ctx, save)
	if err != nil {
		return nil, fmt.Errorf("save board: %w", err)
	}
	return jsonResult(map[string]string{"boardId": id})
}

func (s *Server) handleCheckBoardName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := requireString(req, "name")
	if err != nil {
		return nil, err
	}
	exists, err := s.boards.IsBoardNameExists(ctx, name, req.GetString("excludeBoardId", ""))
	if err != nil {
		return nil, fmt.Errorf("check board name: %w", err)
	}
	return jsonResult(map[string]bool{"exists": exists})
}

func (s *Server) handleDeleteBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(req, "boardId")
	if err != nil {
		return nil, err
	}
	if err := s.boards.DeleteBoard(ctx, id); err != nil {
		return nil, fmt.Errorf("delete board: %w", err)
	}
	return textResult(fmt.Sprintf("Board %s deleted", id)), nil
}
