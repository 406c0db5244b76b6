package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	servicesURI = "hostwatch://services"
	appURIBase  = "hostwatch://apps/"
)

// registerResources adds read-only data that clients can load into context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			servicesURI,
			"Watched Services",
			mcp.WithResourceDescription("Running state of every watched service container."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleServicesResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			appURIBase+"{name}",
			"Application Traffic",
			mcp.WithTemplateDescription(
				"Network counters and rates of one application, i.e. one compose "+
					"project or standalone container, with its member containers.",
			),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleAppResource,
	)
}

func (s *MCPServer) handleServicesResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	report, err := s.dash.Services(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read services: %w", err)
	}
	return jsonResource(servicesURI, report.Services)
}

func (s *MCPServer) handleAppResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	name := strings.TrimPrefix(uri, appURIBase)
	if name == "" || name == uri {
		return nil, fmt.Errorf("invalid application URI %q: expected %s{name}", uri, appURIBase)
	}

	report, err := s.dash.TrafficReport(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sample traffic: %w", err)
	}

	known := make([]string, 0, len(report.Apps))
	for _, app := range report.Apps {
		if app.Name == name {
			return jsonResource(uri, app)
		}
		known = append(known, app.Name)
	}
	return nil, fmt.Errorf("application %q not found (available: %v)", name, known)
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
