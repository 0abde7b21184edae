package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"flowboard/internal/query"
)

const (
	boardsURI      = "flowboard://boards"
	boardURIPrefix = "flowboard://board/"
)

func (s *Server) registerResources() {
	// ── flowboard://boards ─────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		boardsURI,
		"All Boards",
		mcp.WithMIMEType("application/json"),
	), s.handleBoardsResource)

	// ── flowboard://board/{boardId} ────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			boardURIPrefix+"{boardId}",
			"Board Export",
		),
		s.handleBoardResource,
	)
}

func (s *Server) handleBoardsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	items, err := s.boards.ListBoards(ctx, query.Options{})
	if err != nil {
		return nil, err
	}

	data, _ := json.MarshalIndent(items, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      boardsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleBoardResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	boardID := boardIDFromURI(uri)
	if boardID == "" {
		return nil, fmt.Errorf("could not extract boardId from URI: %s", uri)
	}

	text, err := s.boards.ExportBoardAsJSON(ctx, boardID)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		},
	}, nil
}

// boardIDFromURI extracts the id from "flowboard://board/{id}".
func boardIDFromURI(uri string) string {
	id, ok := strings.CutPrefix(uri, boardURIPrefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
