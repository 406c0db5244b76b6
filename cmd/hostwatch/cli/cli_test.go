package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/hostwatch/hostwatch/internal/config"
	"github.com/hostwatch/hostwatch/internal/model"
	"github.com/hostwatch/hostwatch/internal/service"
)

// run executes the command tree with args against dir and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(viper.Reset)

	cmd := newRootCmd("1.2.3", "abc123", "2026-01-01")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--data-dir", dir}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUserLifecycle(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "user", "create", "alice", "--role", "admin", "--password", "longenough1")
	if err != nil {
		t.Fatalf("user create: %v", err)
	}
	if !strings.Contains(out, `admin user "alice"`) {
		t.Errorf("create output = %q", out)
	}

	if _, err := run(t, dir, "user", "create", "alice", "--password", "longenough1"); !strings.Contains(errString(err), "exists") {
		t.Errorf("duplicate create: got %v", err)
	}
	if _, err := run(t, dir, "user", "create", "bob", "--role", "root", "--password", "longenough1"); err == nil {
		t.Error("expected unknown role to fail")
	}

	if _, err := run(t, dir, "user", "passwd", "alice", "--password", "another123"); err != nil {
		t.Fatalf("user passwd: %v", err)
	}
	if _, err := run(t, dir, "user", "deactivate", "alice"); err != nil {
		t.Fatalf("user deactivate: %v", err)
	}

	out, err = run(t, dir, "user", "list", "--json")
	if err != nil {
		t.Fatalf("user list: %v", err)
	}
	var users []model.PublicUser
	if err := json.Unmarshal([]byte(out), &users); err != nil {
		t.Fatalf("decode list: %v; out = %s", err, out)
	}
	if len(users) != 1 || users[0].Username != "alice" || users[0].Active {
		t.Errorf("users = %+v", users)
	}

	// The reset password is the one stored.
	store, err := config.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	u, err := store.GetUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if !service.VerifyPassword("another123", u.PasswordHash) {
		t.Error("password was not reset")
	}
}

func TestUserActivateMissing(t *testing.T) {
	if _, err := run(t, t.TempDir(), "user", "activate", "ghost"); err == nil {
		t.Error("expected error for missing user")
	}
}

func TestUserListEmpty(t *testing.T) {
	out, err := run(t, t.TempDir(), "user", "list")
	if err != nil {
		t.Fatalf("user list: %v", err)
	}
	if !strings.Contains(out, "No accounts configured") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hostwatch.yaml")

	if _, err := run(t, dir, "config", "init", "-o", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	cfg, err := config.LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("port = %d, want 4000", cfg.Server.Port)
	}

	if _, err := run(t, dir, "config", "init", "-o", path); err == nil {
		t.Error("expected error when file exists")
	}
	if _, err := run(t, dir, "config", "init", "-o", path, "--force"); err != nil {
		t.Errorf("config init --force: %v", err)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	t.Setenv("HOSTWATCH_AUTH_JWT_SECRET", "super-secret-value")
	t.Setenv("HOSTWATCH_SERVER_PORT", "4100")

	out, err := run(t, t.TempDir(), "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "super-secret-value") {
		t.Error("jwt secret leaked into output")
	}
	if !strings.Contains(out, redacted) {
		t.Error("expected redacted marker")
	}
	if !strings.Contains(out, "port: 4100") {
		t.Errorf("env override missing from output:\n%s", out)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	path := filepath.Join(dir, "hostwatch.yaml")
	yaml := `
server:
  port: 4200
monitor:
  services: [api, db]
  tunnel_container: tunnel
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })
	initConfig()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != 4200 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if len(cfg.Monitor.Services) != 2 || cfg.Monitor.Services[1] != "db" {
		t.Errorf("services = %v", cfg.Monitor.Services)
	}
	if cfg.Monitor.TunnelContainer != "tunnel" {
		t.Errorf("tunnel = %q", cfg.Monitor.TunnelContainer)
	}
	// Unset keys keep their defaults.
	if cfg.Monitor.FirebirdContainer != "firebird25" || !cfg.Auth.Enabled {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestOpenAPICommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "openapi.json")

	if _, err := run(t, dir, "openapi", "-o", path); err != nil {
		t.Fatalf("openapi: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc struct {
		OpenAPI string                     `json:"openapi"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := doc.Paths["/api/system"]; !ok {
		t.Error("expected /api/system in document")
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := run(t, t.TempDir(), "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info["version"] != "1.2.3" || info["commit"] != "abc123" {
		t.Errorf("info = %v", info)
	}
}

func TestBootstrapAdmin(t *testing.T) {
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	creds := service.NewCredentialService(store)
	ctx := context.Background()
	logger := newLogger(&bytes.Buffer{}, config.LoggingConfig{}, false)

	if err := bootstrapAdmin(ctx, creds, config.AuthConfig{}, logger); err != nil {
		t.Fatalf("no admin configured: %v", err)
	}
	if err := bootstrapAdmin(ctx, creds, config.AuthConfig{AdminUsername: "root", AdminPassword: "short"}, logger); err == nil {
		t.Error("expected short bootstrap password to fail")
	}

	auth := config.AuthConfig{AdminUsername: "root", AdminPassword: "longenough1"}
	if err := bootstrapAdmin(ctx, creds, auth, logger); err != nil {
		t.Fatalf("bootstrapAdmin: %v", err)
	}
	// Second start with a different password leaves the account alone.
	auth.AdminPassword = "different99"
	if err := bootstrapAdmin(ctx, creds, auth, logger); err != nil {
		t.Fatalf("bootstrapAdmin again: %v", err)
	}
	if u, _ := creds.ValidateCredentials(ctx, "root", "longenough1"); u == nil {
		t.Error("first password should still validate")
	}
	if has, _ := creds.HasAnyAdmin(ctx); !has {
		t.Error("expected an admin after bootstrap")
	}
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, config.LoggingConfig{Format: "json"}, false).Info("hello")
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected JSON output, got %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, config.LoggingConfig{Level: "warn"}, false).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be dropped at warn level, got %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, config.LoggingConfig{Level: "warn"}, true).Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("dev mode should enable debug logging")
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
