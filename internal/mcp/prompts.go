package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("summarize_board",
		mcp.WithPromptDescription("Summarize the structure and content of a saved board"),
		mcp.WithArgument("boardId",
			mcp.ArgumentDescription("ID of the board to summarize"),
			mcp.RequiredArgument(),
		),
	), s.handleSummarizeBoardPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("combine_boards",
		mcp.WithPromptDescription("Merge the nodes of one board into another and save the result as a new board"),
		mcp.WithArgument("sourceBoardId",
			mcp.ArgumentDescription("Board whose nodes are copied"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("targetBoardId",
			mcp.ArgumentDescription("Board that receives the nodes"),
			mcp.RequiredArgument(),
		),
	), s.handleCombineBoardsPrompt)
}

func (s *Server) handleSummarizeBoardPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	boardID := req.Params.Arguments["boardId"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Summarize board %s", boardID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Summarize the board "%s". Follow these steps:

1. Use get_board to read its nodes, edges and metadata
2. Group the nodes by type and describe what each group holds
3. Follow the edges and describe the main flows between nodes
4. Point out nodes with no edges

Keep the summary short and structured.`, boardID),
				},
			},
		},
	}, nil
}

func (s *Server) handleCombineBoardsPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	source := req.Params.Arguments["sourceBoardId"]
	target := req.Params.Arguments["targetBoardId"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Combine %s into %s", source, target),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Combine board "%s" into board "%s". Follow these steps:

1. Use export_board on "%s" to get its document
2. Use merge_into_board with boardId "%s" and that document; colliding node ids come back renamed
3. Use get_board on "%s" and append the merged nodes and edges to its own
4. Pick a name that check_board_name reports as free
5. Use save_board without a boardId to store the combined board

Do not overwrite either original board.`, source, target, source, target, target),
				},
			},
		},
	}, nil
}
