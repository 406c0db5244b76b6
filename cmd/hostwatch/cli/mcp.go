package cli

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	hmcp "github.com/hostwatch/hostwatch/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		host      string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the dashboard
reports as read-only tools: host metrics, containers, watched services and
per-application traffic. Supports stdio (default) and HTTP transports.

In stdio mode the server speaks JSON-RPC over stdin/stdout, for clients that
launch hostwatch as a subprocess. Logs go to stderr.

In HTTP mode the server listens using Streamable HTTP. It performs no
authentication, so it binds to loopback unless --host says otherwise.`,
		Example: `  hostwatch mcp                              # stdio mode
  hostwatch mcp --transport http --port 3001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, host, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "HTTP listen host (only used with --transport http)")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport, host string, port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(os.Stderr, cfg.Logging, false)

	mcpSrv := hmcp.NewMCPServer(newMonitor(cfg, logger), versionString(), logger)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		return mcpSrv.ServeHTTP(net.JoinHostPort(host, strconv.Itoa(port)))
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
