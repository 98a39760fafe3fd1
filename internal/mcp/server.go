// Package mcp exposes flows to AI agents over the Model Context Protocol.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/flowdeck/flowdeck/internal/flows"
	"github.com/flowdeck/flowdeck/internal/render"
	"github.com/flowdeck/flowdeck/internal/semantic"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes flow search and retrieval tools.
type Server struct {
	store    *flows.Store
	index    *semantic.Index // nil when no embedder is configured
	renderer *render.Renderer
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server. index may be nil; search_flows then
// falls back to name matching.
func NewServer(store *flows.Store, index *semantic.Index) *Server {
	s := &Server{
		store:    store,
		index:    index,
		renderer: render.New(),
	}

	s.mcp = server.NewMCPServer(
		"flowdeck",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchFlowsTool, s.handleSearchFlows)
	s.mcp.AddTool(getFlowTool, s.handleGetFlow)
	s.mcp.AddTool(listFlowsTool, s.handleListFlows)
	s.mcp.AddTool(getFlowRelationsTool, s.handleGetFlowRelations)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
