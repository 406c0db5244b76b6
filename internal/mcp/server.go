package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hostwatch/hostwatch/internal/model"
)

// Dashboard is the read side the tools report on. *monitor.Monitor
// satisfies it.
type Dashboard interface {
	System(ctx context.Context) (*model.SystemInfo, error)
	Docker(ctx context.Context) (*model.DockerReport, error)
	Services(ctx context.Context) (*model.ServicesReport, error)
	Firebird(ctx context.Context) (*model.FirebirdStatus, error)
	Tunnel(ctx context.Context) (*model.TunnelStatus, error)
	TrafficReport(ctx context.Context) (*model.TrafficReport, error)
}

// MCPServer wraps the mcp-go server with the hostwatch tools and resources.
// Every tool is read-only: agents can inspect the host, never change it.
type MCPServer struct {
	dash   Dashboard
	logger *slog.Logger
	server *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all hostwatch tools and
// resources. The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(dash Dashboard, version string, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		dash:   dash,
		logger: logger,
	}

	mcpServer := server.NewMCPServer(
		"hostwatch",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, for clients that launch
// hostwatch as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode on addr
// (e.g. ":3001").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:   boolPtr(true),
		IdempotentHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
