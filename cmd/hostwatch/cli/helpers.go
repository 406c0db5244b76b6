package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/hostwatch/hostwatch/internal/config"
	"github.com/hostwatch/hostwatch/internal/docker"
	"github.com/hostwatch/hostwatch/internal/monitor"
	"github.com/hostwatch/hostwatch/internal/sysinfo"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// HOSTWATCH_DATA_DIR env var, or ~/.hostwatch as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("HOSTWATCH_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hostwatch")
}

// openConfigStore opens the SQLite store in the resolved data directory.
func openConfigStore() (*config.Store, error) {
	store, err := config.NewStore(resolveDataDir())
	if err != nil {
		return nil, fmt.Errorf("init config store: %w", err)
	}
	return store, nil
}

// newLogger builds the process logger from the logging section. dev forces
// debug level.
func newLogger(w io.Writer, cfg config.LoggingConfig, dev bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if dev {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newMonitor wires the Docker client and host sampler into a Monitor.
func newMonitor(cfg *config.YAMLConfig, logger *slog.Logger) *monitor.Monitor {
	dockerClient := docker.NewClient(cfg.Docker.Socket, cfg.DockerTimeoutDuration())
	sampler := sysinfo.NewSampler(sysinfo.Config{
		DiskPath: cfg.Monitor.DiskPath,
		Hostname: cfg.Monitor.Hostname,
	})
	logger.Info("docker client configured", "socket", dockerClient.Socket(), "timeout", cfg.DockerTimeoutDuration())
	return monitor.New(dockerClient, sampler, monitor.Config{
		Services:          cfg.Monitor.Services,
		FirebirdContainer: cfg.Monitor.FirebirdContainer,
		TunnelContainer:   cfg.Monitor.TunnelContainer,
	}, logger)
}

// readPassword prompts on the terminal without echo. With confirm set the
// password is asked twice and must match.
func readPassword(prompt string, confirm bool) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if !confirm {
		return string(pwBytes), nil
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
