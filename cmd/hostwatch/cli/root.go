package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hostwatch/hostwatch/internal/config"
)

var (
	cfgFile    string
	appVersion string // set in Execute, reported by serve, openapi and mcp
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hostwatch",
		Short: "Monitoring dashboard backend for a single VPS",
		Long: `hostwatch reports host metrics, Docker containers, watched services and
per-application network traffic over an authenticated JSON API.

Accounts live in an embedded SQLite database. Sessions are stateless signed
tokens, and a built-in MCP server exposes the same read-only reports to AI agents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./hostwatch.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the SQLite database (default: ~/.hostwatch)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("hostwatch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.hostwatch")
	}

	setDefaults(viper.GetViper(), config.DefaultYAMLConfig())

	viper.SetEnvPrefix("HOSTWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}

// setDefaults registers every configuration key so that environment
// variables are seen by Unmarshal even when no config file sets them.
func setDefaults(v *viper.Viper, d *config.YAMLConfig) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("server.enable_ui", d.Server.EnableUI)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("auth.enabled", d.Auth.Enabled)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)
	v.SetDefault("auth.admin_username", d.Auth.AdminUsername)
	v.SetDefault("auth.admin_password", d.Auth.AdminPassword)
	v.SetDefault("auth.login_rate_per_minute", d.Auth.LoginRatePerMinute)

	v.SetDefault("docker.socket", d.Docker.Socket)
	v.SetDefault("docker.timeout", d.Docker.Timeout)

	v.SetDefault("monitor.services", d.Monitor.Services)
	v.SetDefault("monitor.firebird_container", d.Monitor.FirebirdContainer)
	v.SetDefault("monitor.tunnel_container", d.Monitor.TunnelContainer)
	v.SetDefault("monitor.disk_path", d.Monitor.DiskPath)
	v.SetDefault("monitor.hostname", d.Monitor.Hostname)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// loadConfig decodes the effective configuration from file, environment
// and bound flags. List keys given through the environment are comma
// separated.
func loadConfig() (*config.YAMLConfig, error) {
	cfg := config.DefaultYAMLConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
