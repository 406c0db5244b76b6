package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hostwatch/hostwatch/internal/model"
)

// registerTools registers all hostwatch MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {
	srv.AddTool(
		mcp.NewTool("hostwatch_system",
			mcp.WithDescription(
				"Report the host's CPU percent, logical cores, memory and disk usage, "+
					"uptime and hostname.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleSystem,
	)

	srv.AddTool(
		mcp.NewTool("hostwatch_containers",
			mcp.WithDescription(
				"List Docker containers with image, status, uptime, published ports and "+
					"network mode. Use running_only to hide stopped containers.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithBoolean("running_only",
				mcp.Description("Only return running containers (default false)"),
			),
			mcp.WithString("name",
				mcp.Description("Case-insensitive substring filter on the container name"),
			),
		),
		s.handleContainers,
	)

	srv.AddTool(
		mcp.NewTool("hostwatch_services",
			mcp.WithDescription(
				"Report whether each watched service container is running, together with "+
					"the database container and the tunnel connector status.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleServices,
	)

	srv.AddTool(
		mcp.NewTool("hostwatch_traffic",
			mcp.WithDescription(
				"Sample network traffic of running containers. Returns cumulative byte "+
					"counters and bytes-per-second rates per container, per application "+
					"and in total. Rates are measured against the previous sample, so the "+
					"first call after startup reports zero rates.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("app",
				mcp.Description("Case-insensitive substring filter on the application name"),
			),
		),
		s.handleTraffic,
	)
}

func (s *MCPServer) handleSystem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.dash.System(ctx)
	if err != nil {
		return collectorError("read host metrics", err)
	}
	return successJSON(info)
}

func (s *MCPServer) handleContainers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runningOnly := request.GetBool("running_only", false)
	name := request.GetString("name", "")

	report, err := s.dash.Docker(ctx)
	if err != nil {
		return collectorError("list containers", err)
	}

	out := make([]model.ContainerSummary, 0, len(report.Containers))
	for _, c := range report.Containers {
		if runningOnly && !c.Running {
			continue
		}
		if !matchesFilter(c.Name, name) {
			continue
		}
		out = append(out, c)
	}

	return successJSON(map[string]interface{}{
		"total":      report.Total,
		"running":    report.Running,
		"count":      len(out),
		"containers": out,
	})
}

func (s *MCPServer) handleServices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	services, err := s.dash.Services(ctx)
	if err != nil {
		return collectorError("read service status", err)
	}
	firebird, err := s.dash.Firebird(ctx)
	if err != nil {
		return collectorError("read database status", err)
	}
	tunnel, err := s.dash.Tunnel(ctx)
	if err != nil {
		return collectorError("read tunnel status", err)
	}

	return successJSON(map[string]interface{}{
		"services": services.Services,
		"firebird": firebird,
		"tunnel":   tunnel,
	})
}

func (s *MCPServer) handleTraffic(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	app := request.GetString("app", "")

	report, err := s.dash.TrafficReport(ctx)
	if err != nil {
		return collectorError("sample traffic", err)
	}
	if app == "" {
		return successJSON(report)
	}

	apps := make([]model.AppTraffic, 0, len(report.Apps))
	members := make(map[string]struct{})
	for _, a := range report.Apps {
		if !matchesFilter(a.Name, app) {
			continue
		}
		apps = append(apps, a)
		for _, c := range a.Containers {
			members[c] = struct{}{}
		}
	}
	if len(apps) == 0 {
		return toolError("no application matches %q", app)
	}

	containers := make([]model.ContainerTraffic, 0, len(members))
	for _, c := range report.Containers {
		if _, ok := members[c.Name]; ok {
			containers = append(containers, c)
		}
	}

	filtered := *report
	filtered.Apps = apps
	filtered.Containers = containers
	return successJSON(filtered)
}
