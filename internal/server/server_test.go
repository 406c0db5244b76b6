package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hostwatch/hostwatch/internal/config"
	"github.com/hostwatch/hostwatch/internal/model"
	"github.com/hostwatch/hostwatch/internal/service"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const testPassword = "supersecretpassword"

var testJWTSecret = []byte("test-secret-for-jwt-integration-tests")

type stubDashboard struct{}

func (stubDashboard) System(context.Context) (*model.SystemInfo, error) {
	return &model.SystemInfo{Status: "ok", Hostname: "vps-1", CPUCores: 2}, nil
}

func (stubDashboard) Docker(context.Context) (*model.DockerReport, error) {
	return &model.DockerReport{Status: "ok"}, nil
}

func (stubDashboard) Services(context.Context) (*model.ServicesReport, error) {
	return &model.ServicesReport{Status: "ok", Services: map[string]bool{}}, nil
}

func (stubDashboard) Firebird(context.Context) (*model.FirebirdStatus, error) {
	return &model.FirebirdStatus{Status: "ok"}, nil
}

func (stubDashboard) Tunnel(context.Context) (*model.TunnelStatus, error) {
	return &model.TunnelStatus{Status: "ok"}, nil
}

func (stubDashboard) TrafficReport(context.Context) (*model.TrafficReport, error) {
	return &model.TrafficReport{Status: "ok"}, nil
}

// testEnv holds all the shared state for integration tests.
type testEnv struct {
	server *Server
	store  *config.Store
	creds  *service.CredentialService
}

type envOption func(*Config, *service.GuardConfig)

func withStaticDir(dir string) envOption {
	return func(c *Config, _ *service.GuardConfig) { c.StaticDir = dir }
}

func withoutUI() envOption {
	return func(c *Config, _ *service.GuardConfig) { c.EnableUI = false }
}

func withLoginRate(n int) envOption {
	return func(c *Config, _ *service.GuardConfig) { c.LoginRatePerMinute = n }
}

func withAuthDisabled() envOption {
	return func(_ *Config, g *service.GuardConfig) { g.Disabled = true }
}

// newTestEnv creates a fresh test environment with an in-memory store and a
// fully wired Server.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	store, err := config.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	creds := service.NewCredentialService(store)
	cfg := DefaultConfig()
	guardCfg := service.GuardConfig{
		Credentials: creds,
		Codec:       service.NewTokenCodec(testJWTSecret),
		TokenTTL:    time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg, &guardCfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(cfg, service.NewGuard(guardCfg), creds, stubDashboard{}, logger)
	return &testEnv{server: srv, store: store, creds: creds}
}

func (e *testEnv) seedUser(t *testing.T, username string, role model.Role) {
	t.Helper()
	if _, err := e.creds.CreateUser(context.Background(), username, testPassword, role); err != nil {
		t.Fatalf("seedUser: %v", err)
	}
}

// login posts credentials and returns the issued token.
func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	rr := e.do(t, "POST", "/api/auth/login", jsonBody(t, model.LoginRequest{Username: username, Password: testPassword}), "")
	assertStatus(t, rr, http.StatusOK)

	var resp model.LoginResponse
	decodeJSON(t, rr, &resp)
	if resp.Token == "" {
		t.Fatal("login: got empty token")
	}
	return resp.Token
}

// do executes an HTTP request against the test server and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("jsonBody: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func assertContentType(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()
	got := rr.Header().Get("Content-Type")
	if !strings.HasPrefix(got, want) {
		t.Errorf("Content-Type = %q, want %q", got, want)
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Open endpoints
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/health", nil, "")
	assertStatus(t, rr, http.StatusOK)
	assertContentType(t, rr, "application/json")

	var resp model.HealthResponse
	decodeJSON(t, rr, &resp)
	if resp.Status != "ok" || resp.Service != "hostwatch" {
		t.Errorf("got %+v", resp)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestOpenAPIDocument(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/openapi.json", nil, "")
	assertStatus(t, rr, http.StatusOK)
	assertContentType(t, rr, "application/json")

	var doc struct {
		OpenAPI string                     `json:"openapi"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	decodeJSON(t, rr, &doc)
	if !strings.HasPrefix(doc.OpenAPI, "3.") {
		t.Errorf("openapi = %q", doc.OpenAPI)
	}
	for _, p := range []string{"/api/auth/login", "/api/traffic", "/api/users/{username}"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("path %s missing from document", p)
		}
	}
}

// ---------------------------------------------------------------------------
// Authentication and roles
// ---------------------------------------------------------------------------

func TestLoginAndDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", model.RoleViewer)

	token := env.login(t, "alice")

	rr := env.do(t, "GET", "/api/system", nil, token)
	assertStatus(t, rr, http.StatusOK)
	var sys model.SystemInfo
	decodeJSON(t, rr, &sys)
	if sys.Hostname != "vps-1" {
		t.Errorf("hostname = %q", sys.Hostname)
	}

	rr = env.do(t, "GET", "/api/auth/me", nil, token)
	assertStatus(t, rr, http.StatusOK)
	var me model.Identity
	decodeJSON(t, rr, &me)
	if me.Username != "alice" || me.Role != model.RoleViewer || !me.AuthEnabled {
		t.Errorf("got identity %+v", me)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/system", "/api/docker", "/api/traffic", "/api/auth/me", "/api/users"} {
		t.Run(path, func(t *testing.T) {
			rr := env.do(t, "GET", path, nil, "")
			assertStatus(t, rr, http.StatusUnauthorized)
			if rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
		})
	}

	rr := env.do(t, "GET", "/api/system", nil, "not.a.token")
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestUserAdminRequiresAdminRole(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "root", model.RoleAdmin)
	env.seedUser(t, "viewer", model.RoleViewer)

	rr := env.do(t, "GET", "/api/users", nil, env.login(t, "viewer"))
	assertStatus(t, rr, http.StatusForbidden)

	admin := env.login(t, "root")
	rr = env.do(t, "POST", "/api/users", jsonBody(t, model.CreateUserRequest{Username: "bob", Password: testPassword}), admin)
	assertStatus(t, rr, http.StatusCreated)

	rr = env.do(t, "GET", "/api/users", nil, admin)
	assertStatus(t, rr, http.StatusOK)
	var list model.UserList
	decodeJSON(t, rr, &list)
	if list.Total != 3 {
		t.Errorf("total = %d, want 3", list.Total)
	}
}

func TestAuthDisabled(t *testing.T) {
	env := newTestEnv(t, withAuthDisabled())

	rr := env.do(t, "GET", "/api/users", nil, "")
	assertStatus(t, rr, http.StatusOK)

	rr = env.do(t, "GET", "/api/auth/me", nil, "")
	assertStatus(t, rr, http.StatusOK)
	var me model.Identity
	decodeJSON(t, rr, &me)
	if me.Username != service.DefaultPrincipalName || me.AuthEnabled {
		t.Errorf("got identity %+v", me)
	}
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv(t, withLoginRate(2))

	body := func() io.Reader {
		return jsonBody(t, model.LoginRequest{Username: "nobody", Password: "wrong-password"})
	}
	for i := 0; i < 2; i++ {
		rr := env.do(t, "POST", "/api/auth/login", body(), "")
		assertStatus(t, rr, http.StatusUnauthorized)
	}

	rr := env.do(t, "POST", "/api/auth/login", body(), "")
	assertStatus(t, rr, http.StatusTooManyRequests)
	assertContentType(t, rr, "application/json")

	// Only the login route is limited.
	rr = env.do(t, "GET", "/health", nil, "")
	assertStatus(t, rr, http.StatusOK)
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

func TestUnknownAPIRouteIsJSON(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/nope", nil, "")
	assertStatus(t, rr, http.StatusNotFound)
	assertContentType(t, rr, "application/json")

	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error.Code != http.StatusNotFound {
		t.Errorf("error code = %d", resp.Error.Code)
	}
}

func TestStaticFrontend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>dashboard</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}

	env := newTestEnv(t, withStaticDir(dir))

	tests := []struct {
		path string
		want string
	}{
		{"/", "dashboard"},
		{"/assets/app.js", "console.log"},
		{"/traffic/shop", "dashboard"}, // client-side route
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := env.do(t, "GET", tt.path, nil, "")
			assertStatus(t, rr, http.StatusOK)
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("body = %q, want it to contain %q", rr.Body.String(), tt.want)
			}
		})
	}

	// API misses never fall through to the SPA.
	rr := env.do(t, "GET", "/api/nope", nil, "")
	assertStatus(t, rr, http.StatusNotFound)
}

func TestEmbeddedFrontend(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/", nil, "")
	assertStatus(t, rr, http.StatusOK)
	assertContentType(t, rr, "text/html")
	if !strings.Contains(rr.Body.String(), "openapi.json") {
		t.Errorf("expected placeholder page, got %q", rr.Body.String())
	}

	env = newTestEnv(t, withoutUI())
	rr = env.do(t, "GET", "/", nil, "")
	assertStatus(t, rr, http.StatusNotFound)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t)
	env.server.cfg.ShutdownTimeout = time.Second

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
