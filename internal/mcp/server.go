package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"flowboard/internal/service"
)

// Server is the MCP server for flowboard.
// It exposes tools, resources, and prompts so AI agents can read, import and
// export boards.
type Server struct {
	mcp    *server.MCPServer
	boards *service.BoardService
	logger *zap.Logger
}

// Deps holds all dependencies passed from the app layer to the MCP server.
type Deps struct {
	Boards  *service.BoardService
	Logger  *zap.Logger
	Version string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Version == "" {
		deps.Version = "1.0.0"
	}
	s := &Server{
		boards: deps.Boards,
		logger: deps.Logger,
	}

	s.mcp = server.NewMCPServer(
		"flowboard-mcp",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerBoardTools()
	s.registerTransferTools()
	s.registerMaintenanceTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting mcp stdio server")
	return server.ServeStdio(s.mcp)
}

// MCPServer exposes the underlying server, mainly for tests.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }
