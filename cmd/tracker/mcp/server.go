package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-logr/logr"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opportuna/analysis-tracker/client"
)

// MCPServer wraps the MCP server and provides tool handling
type MCPServer struct {
	server  *mcp.Server
	log     logr.Logger
	baseURL string
}

// NewMCPServer creates a new MCP server with all tools registered
func NewMCPServer(log logr.Logger, baseURL string) (*MCPServer, error) {
	s := &MCPServer{
		log:     log,
		baseURL: baseURL,
	}

	// Create the MCP server instance
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "analysis-tracker-mcp",
			Version: "0.1.0",
		},
		nil,
	)

	// Register all tools
	if err := s.registerTools(mcpServer); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	s.server = mcpServer
	return s, nil
}

// registerTools registers all available MCP tools
func (s *MCPServer) registerTools(server *mcp.Server) error {
	// Tool 1: report_run
	server.AddTool(
		&mcp.Tool{
			Name:        "report_run",
			Description: "Start a business analysis report and track it to completion",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"company": {"type": "string", "description": "Company name to generate the report for"},
					"sector": {"type": "string", "description": "Business sector of the company"},
					"service": {"type": "string", "description": "Service type to analyze"},
					"session_id": {"type": "string", "description": "Override the generated session id (optional)"},
					"simulate_only": {"type": "boolean", "description": "Do not contact a backend, play the run out locally (default: false)"},
					"output_format": {"type": "string", "description": "Output format: 'json' or 'yaml' (default: yaml)", "enum": ["json", "yaml"]}
				},
				"required": ["company", "sector", "service"]
			}`),
		},
		s.handleReportRun,
	)

	// Tool 2: progress_get
	server.AddTool(
		&mcp.Tool{
			Name:        "progress_get",
			Description: "Get the current progress record for an analysis session",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"session_id": {"type": "string", "description": "Session id to look up"}
				},
				"required": ["session_id"]
			}`),
		},
		s.handleProgressGet,
	)

	// Tool 3: progress_clear
	server.AddTool(
		&mcp.Tool{
			Name:        "progress_clear",
			Description: "Remove the progress record for an analysis session",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"session_id": {"type": "string", "description": "Session id to clear"}
				},
				"required": ["session_id"]
			}`),
		},
		s.handleProgressClear,
	)

	// Tool 4: charts_merge
	server.AddTool(
		&mcp.Tool{
			Name:        "charts_merge",
			Description: "Merge freshly produced chart artifacts into an existing set without creating duplicates",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"existing": {"type": "array", "description": "Existing chart artifacts", "items": {"type": "object"}},
					"incoming": {"description": "Analysis response envelope or bare chart list to merge in"},
					"selector": {"type": "string", "description": "Label expression to filter the merged charts (optional), ex: (chart.type=line || chart.type=bar)"},
					"origin": {"type": "string", "description": "Origin tag for incoming charts (default: assistant)", "enum": ["analysis", "assistant"]}
				},
				"required": ["incoming"]
			}`),
		},
		s.handleChartsMerge,
	)

	// Tool 5: analyze_data
	server.AddTool(
		&mcp.Tool{
			Name:        "analyze_data",
			Description: "Submit a data payload for ad-hoc analysis and get back chart artifacts",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"data": {"description": "Arbitrary JSON payload to analyze"}
				},
				"required": ["data"]
			}`),
		},
		s.handleAnalyzeData,
	)

	return nil
}

// wrapError converts common errors to MCP protocol errors
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	// Map common errors to appropriate error codes
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("file or directory not found: %w", err)
	case errors.Is(err, client.ErrSessionNotFound):
		return fmt.Errorf("session not found: %w", err)
	case strings.Contains(err.Error(), "unable to parse"):
		return fmt.Errorf("parse error: %w", err)
	case strings.Contains(err.Error(), "cannot be empty"):
		return fmt.Errorf("validation error: %w", err)
	default:
		return fmt.Errorf("internal error: %w", err)
	}
}

// Tool handlers delegate to the tool implementations
func (s *MCPServer) handleReportRun(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ReportRunParams
	if err := json.Unmarshal(request.Params.Arguments, &params); err != nil {
		return nil, wrapError(fmt.Errorf("invalid parameters: %w", err))
	}

	result, err := reportRun(ctx, s.log, s.baseURL, params)
	if err != nil {
		return nil, wrapError(err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: result},
		},
	}, nil
}

func (s *MCPServer) handleProgressGet(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ProgressGetParams
	if err := json.Unmarshal(request.Params.Arguments, &params); err != nil {
		return nil, wrapError(fmt.Errorf("invalid parameters: %w", err))
	}

	result, err := progressGet(ctx, s.log, s.baseURL, params)
	if err != nil {
		return nil, wrapError(err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: result},
		},
	}, nil
}

func (s *MCPServer) handleProgressClear(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ProgressClearParams
	if err := json.Unmarshal(request.Params.Arguments, &params); err != nil {
		return nil, wrapError(fmt.Errorf("invalid parameters: %w", err))
	}

	result, err := progressClear(ctx, s.log, s.baseURL, params)
	if err != nil {
		return nil, wrapError(err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: result},
		},
	}, nil
}

func (s *MCPServer) handleChartsMerge(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ChartsMergeParams
	if err := json.Unmarshal(request.Params.Arguments, &params); err != nil {
		return nil, wrapError(fmt.Errorf("invalid parameters: %w", err))
	}

	result, err := chartsMerge(ctx, s.log, params)
	if err != nil {
		return nil, wrapError(err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: result},
		},
	}, nil
}

func (s *MCPServer) handleAnalyzeData(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params AnalyzeDataParams
	if err := json.Unmarshal(request.Params.Arguments, &params); err != nil {
		return nil, wrapError(fmt.Errorf("invalid parameters: %w", err))
	}

	result, err := analyzeData(ctx, s.log, s.baseURL, params)
	if err != nil {
		return nil, wrapError(err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: result},
		},
	}, nil
}

// ServeStdio starts the MCP server using stdio transport
func (s *MCPServer) ServeStdio(ctx context.Context) error {
	s.log.Info("starting MCP server with stdio transport")

	// Create stdio transport
	transport := &mcp.StdioTransport{}

	// Connect the server to the transport
	session, err := s.server.Connect(ctx, transport, nil)
	if err != nil {
		s.log.Error(err, "failed to connect server to stdio transport")
		return err
	}
	defer session.Close()

	// Wait for context cancellation
	<-ctx.Done()
	s.log.Info("stdio server stopped")
	return nil
}

// ServeHTTP starts the MCP server using HTTP transport
func (s *MCPServer) ServeHTTP(ctx context.Context, port int) error {
	return serveHTTP(ctx, s.server, s.log, port)
}
