package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hostwatch/hostwatch/internal/config"
	"github.com/hostwatch/hostwatch/internal/model"
	"github.com/hostwatch/hostwatch/internal/server/middleware"
	"github.com/hostwatch/hostwatch/internal/service"
)

const testPassword = "longenough1"

var testJWTSecret = []byte("test-secret-key-for-handler-tests")

// testEnv bundles an in-memory store, the auth services and a router with
// the handlers mounted behind the real auth middleware.
type testEnv struct {
	store  *config.Store
	creds  *service.CredentialService
	guard  *service.Guard
	dash   *fakeDashboard
	router chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, false)
}

func newTestEnvWith(t *testing.T, authDisabled bool) *testEnv {
	t.Helper()

	store, err := config.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	creds := service.NewCredentialService(store)
	guard := service.NewGuard(service.GuardConfig{
		Credentials: creds,
		Codec:       service.NewTokenCodec(testJWTSecret),
		TokenTTL:    time.Hour,
		Disabled:    authDisabled,
	})
	dash := newFakeDashboard()

	authHandler := NewAuthHandler(guard, creds, logger)
	dashHandler := NewDashboardHandler(dash, logger)

	r := chi.NewRouter()
	r.Post("/api/auth/login", authHandler.Login)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(guard, logger))
		r.Get("/api/auth/me", authHandler.Me)
		r.Post("/api/auth/password", authHandler.ChangePassword)
		r.Get("/api/system", dashHandler.System)
		r.Get("/api/docker", dashHandler.Docker)
		r.Get("/api/services", dashHandler.Services)
		r.Get("/api/firebird", dashHandler.Firebird)
		r.Get("/api/tunnel", dashHandler.Tunnel)
		r.Get("/api/traffic", dashHandler.Traffic)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(guard))
			r.Get("/api/users", authHandler.ListUsers)
			r.Post("/api/users", authHandler.CreateUser)
			r.Patch("/api/users/{username}", authHandler.UpdateUser)
		})
	})

	return &testEnv{store: store, creds: creds, guard: guard, dash: dash, router: r}
}

// seedUser creates an active user with testPassword.
func (e *testEnv) seedUser(t *testing.T, username string, role model.Role) *model.User {
	t.Helper()
	u, err := e.creds.CreateUser(context.Background(), username, testPassword, role)
	if err != nil {
		t.Fatalf("seedUser: %v", err)
	}
	return u
}

// tokenFor logs username in and returns the bearer token.
func (e *testEnv) tokenFor(t *testing.T, username string) string {
	t.Helper()
	s, err := e.guard.Login(context.Background(), username, testPassword)
	if err != nil {
		t.Fatalf("tokenFor(%s): %v", username, err)
	}
	return s.Token
}

// do executes an HTTP request against the test router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	return resp.Error.Message
}
