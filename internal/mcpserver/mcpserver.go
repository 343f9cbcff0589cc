package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and registers all scalpel analysis tools.
type Server struct {
	server *mcp.Server
}

// NewServer creates a new MCP server with all scalpel tools registered.
func NewServer(version string) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "scalpel",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds all scalpel analyzer tools to the server.
func (s *Server) registerTools() {
	// Cross-file dependency traversal
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_dependencies",
		Description: describeDependencies(),
	}, handleAnalyzeDependencies)

	// Source-to-sink taint scanning
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "scan_taint",
		Description: describeTaint(),
	}, handleScanTaint)

	// k-hop module neighborhood extraction
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "graph_neighborhood",
		Description: describeNeighborhood(),
	}, handleGraphNeighborhood)

	// Import cycle detection
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_cycles",
		Description: describeCycles(),
	}, handleFindCycles)
}
