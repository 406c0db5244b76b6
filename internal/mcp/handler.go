package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hostwatch/hostwatch/internal/docker"
)

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. These are visible to the
// model and do not terminate the MCP session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// collectorError turns a Docker or host sampling failure into a tool error
// with a hint the model can act on.
func collectorError(what string, err error) (*mcp.CallToolResult, error) {
	var se *docker.StatusError
	switch {
	case errors.Is(err, docker.ErrSocketNotFound):
		return toolError("%s: Docker socket not available on this host", what)
	case errors.As(err, &se):
		return toolError("%s: Docker engine returned %d", what, se.Code)
	default:
		return toolError("%s: %v", what, err)
	}
}

// matchesFilter reports whether name contains filter, ignoring case. An
// empty filter matches everything.
func matchesFilter(name, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(filter))
}
