// Package openapi describes the hostwatch HTTP API as an OpenAPI 3.1 document.
package openapi

import (
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/hostwatch/hostwatch/internal/model"
)

// Access is the authorization level of a route.
type Access int

const (
	Public Access = iota
	Authenticated
	AdminOnly
)

// Route documents one endpoint.
type Route struct {
	Method      string
	Path        string
	Tag         string
	Summary     string
	OperationID string
	Access      Access
	Request     any // body type, nil for none
	Response    any
	Status      string // success status, "200" when empty
}

// Routes is every endpoint the server mounts under /api plus the open probes.
var Routes = []Route{
	{Method: http.MethodGet, Path: "/health", Tag: "meta", Summary: "Liveness probe", OperationID: "health", Access: Public, Response: model.HealthResponse{}},

	{Method: http.MethodPost, Path: "/api/auth/login", Tag: "auth", Summary: "Exchange credentials for a bearer token", OperationID: "login", Access: Public, Request: model.LoginRequest{}, Response: model.LoginResponse{}},
	{Method: http.MethodGet, Path: "/api/auth/me", Tag: "auth", Summary: "Describe the caller", OperationID: "me", Access: Authenticated, Response: model.Identity{}},
	{Method: http.MethodPost, Path: "/api/auth/password", Tag: "auth", Summary: "Change the caller's password", OperationID: "change_password", Access: Authenticated, Request: model.ChangePasswordRequest{}, Response: model.PublicUser{}},

	{Method: http.MethodGet, Path: "/api/system", Tag: "dashboard", Summary: "Host CPU, memory, disk and uptime", OperationID: "system", Access: Authenticated, Response: model.SystemInfo{}},
	{Method: http.MethodGet, Path: "/api/docker", Tag: "dashboard", Summary: "All Docker containers", OperationID: "docker", Access: Authenticated, Response: model.DockerReport{}},
	{Method: http.MethodGet, Path: "/api/services", Tag: "dashboard", Summary: "Running state of watched containers", OperationID: "services", Access: Authenticated, Response: model.ServicesReport{}},
	{Method: http.MethodGet, Path: "/api/firebird", Tag: "dashboard", Summary: "Firebird container status", OperationID: "firebird", Access: Authenticated, Response: model.FirebirdStatus{}},
	{Method: http.MethodGet, Path: "/api/tunnel", Tag: "dashboard", Summary: "Tunnel connector status", OperationID: "tunnel", Access: Authenticated, Response: model.TunnelStatus{}},
	{Method: http.MethodGet, Path: "/api/traffic", Tag: "dashboard", Summary: "Network rates per container and application", OperationID: "traffic", Access: Authenticated, Response: model.TrafficReport{}},

	{Method: http.MethodGet, Path: "/api/users", Tag: "users", Summary: "List accounts", OperationID: "list_users", Access: AdminOnly, Response: model.UserList{}},
	{Method: http.MethodPost, Path: "/api/users", Tag: "users", Summary: "Create an account", OperationID: "create_user", Access: AdminOnly, Request: model.CreateUserRequest{}, Response: model.PublicUser{}, Status: "201"},
	{Method: http.MethodPatch, Path: "/api/users/{username}", Tag: "users", Summary: "Activate or deactivate an account", OperationID: "update_user", Access: AdminOnly, Request: model.UpdateUserRequest{}, Response: model.PublicUser{}},
}

// Options tune the generated document.
type Options struct {
	Version     string
	ServerURL   string
	AuthEnabled bool
}

// Generate builds the API document for routes.
func Generate(routes []Route, opts Options) *openapi3.T {
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "hostwatch API",
			Description: "Host and Docker monitoring dashboard backend.",
			Version:     version,
		},
		Paths: openapi3.NewPaths(),
	}
	if opts.ServerURL != "" {
		doc.Servers = openapi3.Servers{{URL: opts.ServerURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{
		"ErrorResponse": SchemaOf(model.ErrorResponse{}),
	}
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"bearerAuth": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:         "http",
				Scheme:       "bearer",
				BearerFormat: "JWT",
			},
		},
	}
	doc.Components = &components

	for _, rt := range routes {
		item := doc.Paths.Value(rt.Path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(rt.Path, item)
		}
		item.SetOperation(rt.Method, operation(rt, opts.AuthEnabled))
	}
	return doc
}

func operation(rt Route, authEnabled bool) *openapi3.Operation {
	op := &openapi3.Operation{
		Tags:        []string{rt.Tag},
		Summary:     rt.Summary,
		OperationID: rt.OperationID,
	}

	if strings.Contains(rt.Path, "{username}") {
		op.Parameters = openapi3.Parameters{
			{Value: openapi3.NewPathParameter("username").WithSchema(openapi3.NewStringSchema())},
		}
	}

	if rt.Request != nil {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchemaRef(SchemaOf(rt.Request)),
		}
	}

	status := rt.Status
	if status == "" {
		status = "200"
	}
	op.Responses = newResponses(status, rt.Summary, SchemaOf(rt.Response), rt, authEnabled)

	if rt.Access != Public && authEnabled {
		op.Security = &openapi3.SecurityRequirements{{"bearerAuth": {}}}
	}
	return op
}

// newResponses builds the success response plus the error responses the
// route can actually produce.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef, rt Route, authEnabled bool) *openapi3.Responses {
	responses := openapi3.NewResponses()
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &description,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)
	addError := func(code, desc string) {
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}

	if rt.Request != nil {
		addError("400", "Bad request")
	}
	if (rt.Access != Public && authEnabled) || rt.OperationID == "login" {
		addError("401", "Unauthorized")
	}
	if rt.Access == AdminOnly && authEnabled {
		addError("403", "Forbidden")
	}
	switch rt.Tag {
	case "users":
		if rt.Method == http.MethodPost {
			addError("409", "User already exists")
		}
		if rt.Method == http.MethodPatch {
			addError("404", "User not found")
		}
	case "dashboard":
		addError("502", "Docker engine error")
		addError("503", "Docker engine unreachable")
	}
	if rt.OperationID == "login" {
		addError("429", "Too many login attempts")
	}
	addError("500", "Internal server error")
	return responses
}
