package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/teranos/searchq/lsp"
	"github.com/teranos/searchq/version"
)

// MCPServer exposes the language service as Model Context Protocol tools
type MCPServer struct {
	svc    *lsp.Service
	logger *zap.SugaredLogger
	server *mcpserver.MCPServer
}

// NewMCPServer creates an MCP server with the query tools registered
func NewMCPServer(svc *lsp.Service, logger *zap.SugaredLogger) *MCPServer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &MCPServer{
		svc:    svc,
		logger: logger.Named("mcp"),
		server: mcpserver.NewMCPServer(
			"searchq",
			version.Get().Version,
			mcpserver.WithToolCapabilities(true),
		),
	}
	s.registerTools()
	return s
}

func (s *MCPServer) registerTools() {
	completeTool := mcp.NewTool("complete_search_query",
		mcp.WithDescription("Suggest completions for a code search query at a cursor column: filter names, filter values, predicate snippets and repositories or files from the local index"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query typed so far"),
		),
		mcp.WithNumber("column",
			mcp.Description("1-based cursor column (default: end of query)"),
		),
	)
	s.server.AddTool(completeTool, s.handleComplete)

	diagnoseTool := mcp.NewTool("diagnose_search_query",
		mcp.WithDescription("Report problems in a code search query: unknown filters with corrections, invalid values, unbalanced parentheses"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query to check"),
		),
	)
	s.server.AddTool(diagnoseTool, s.handleDiagnose)
}

// handleComplete handles the complete_search_query tool
func (s *MCPServer) handleComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	column := request.GetInt("column", 0)

	list, err := s.svc.GetCompletions(ctx, lsp.CompletionRequest{Query: query, Column: column, Trigger: "manual"})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to complete query: %v", err)), nil
	}
	if list == nil || len(list.Items) == 0 {
		return mcp.NewToolResultText("No completions"), nil
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode completions: %v", err)), nil
	}
	s.logger.Debugw("MCP completion", "query", query, "items", len(list.Items))
	return mcp.NewToolResultText(string(data)), nil
}

// handleDiagnose handles the diagnose_search_query tool
func (s *MCPServer) handleDiagnose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.svc.Parse(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse query: %v", err)), nil
	}
	if len(resp.Diagnostics) == 0 {
		return mcp.NewToolResultText("No problems found"), nil
	}

	data, err := json.MarshalIndent(resp.Diagnostics, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode diagnostics: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ServeStdio runs the MCP server on stdin/stdout
func (s *MCPServer) ServeStdio() error {
	return mcpserver.ServeStdio(s.server)
}
