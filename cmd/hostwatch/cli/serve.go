package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hostwatch/hostwatch/internal/config"
	"github.com/hostwatch/hostwatch/internal/model"
	"github.com/hostwatch/hostwatch/internal/server"
	"github.com/hostwatch/hostwatch/internal/service"
)

const banner = `
 _               _                 _       _
| |__   ___  ___| |___      ____ _| |_ ___| |__
| '_ \ / _ \/ __| __\ \ /\ / / _' | __/ __| '_ \
| | | | (_) \__ \ |_ \ V  V / (_| | || (__| | | |
|_| |_|\___/|___/\__| \_/\_/ \__,_|\__\___|_| |_|
`

func newServeCmd() *cobra.Command {
	var (
		dev  bool
		noUI bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the hostwatch API server",
		Long:  "Start the HTTP server that serves the dashboard API and, when configured, the frontend build.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), dev, noUI)
		},
	}

	cmd.Flags().IntP("port", "p", 4000, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().String("static-dir", "", "Serve a frontend build from this directory")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "Do not serve the embedded frontend")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("server.static_dir", cmd.Flags().Lookup("static-dir"))

	return cmd
}

func runServe(ctx context.Context, dev, noUI bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if noUI {
		cfg.Server.EnableUI = false
	}
	logger := newLogger(os.Stderr, cfg.Logging, dev)

	fmt.Print(banner)
	fmt.Println()

	// 1. Credential store (SQLite)
	store, err := openConfigStore()
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("config store initialized", "path", store.Path())

	creds := service.NewCredentialService(store)

	// 2. Bootstrap admin account from configuration
	if err := bootstrapAdmin(ctx, creds, cfg.Auth, logger); err != nil {
		return err
	}
	if n, err := store.CountUsers(ctx); err == nil {
		logger.Info("accounts loaded", "count", n)
	}
	if cfg.Auth.Enabled {
		hasAdmin, err := creds.HasAnyAdmin(ctx)
		if err != nil {
			logger.Warn("failed to check for admin", "error", err)
		}
		if !hasAdmin {
			logger.Warn("no active admin account found - run: hostwatch user create --role admin")
		}
	} else {
		logger.Warn("authentication is disabled; every request acts as the implicit admin")
	}

	// 3. Signing secret and access guard
	secret, err := service.ResolveSigningSecret(ctx, store, cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}
	guard := service.NewGuard(service.GuardConfig{
		Credentials: creds,
		Codec:       service.NewTokenCodec(secret),
		TokenTTL:    cfg.TokenTTLDuration(),
		Disabled:    !cfg.Auth.Enabled,
	})
	logger.Info("access guard ready", "auth", guard.Enabled(), "token_ttl", guard.TokenTTL())

	// 4. Collectors
	mon := newMonitor(cfg, logger)

	// 5. Build and start HTTP server
	srvCfg := server.Config{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		ShutdownTimeout:    cfg.ShutdownTimeoutDuration(),
		CORSOrigins:        cfg.Server.CORSOrigins,
		StaticDir:          cfg.Server.StaticDir,
		EnableUI:           cfg.Server.EnableUI,
		LoginRatePerMinute: cfg.Auth.LoginRatePerMinute,
		Version:            versionString(),
	}
	srv := server.New(srvCfg, guard, creds, mon, logger)

	fmt.Printf("→ hostwatch %s\n", versionString())
	fmt.Printf("→ Listening on http://%s\n", srv.Addr())
	if cfg.Server.StaticDir != "" || cfg.Server.EnableUI {
		fmt.Printf("→ Dashboard:  http://%s/\n", srv.Addr())
	}
	fmt.Printf("→ OpenAPI:    http://%s/openapi.json\n", srv.Addr())
	fmt.Printf("→ Health:     http://%s/health\n", srv.Addr())
	fmt.Println()

	return srv.ListenAndServe()
}

// bootstrapAdmin creates the configured admin account on first start. An
// existing account is left untouched.
func bootstrapAdmin(ctx context.Context, creds *service.CredentialService, auth config.AuthConfig, logger *slog.Logger) error {
	if auth.AdminUsername == "" {
		return nil
	}
	u, err := creds.EnsureUser(ctx, auth.AdminUsername, auth.AdminPassword, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("bootstrap admin %q: %w", auth.AdminUsername, err)
	}
	if u.Role != model.RoleAdmin {
		logger.Warn("bootstrap user exists with a different role; leaving it unchanged",
			"username", u.Username, "role", u.Role)
	}
	if !u.Active {
		logger.Warn("bootstrap user is deactivated", "username", u.Username)
	}
	return nil
}
