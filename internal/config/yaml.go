package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level hostwatch configuration file. The
// mapstructure tags let viper decode the same shape from file, env and flags.
type YAMLConfig struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Auth    AuthConfig    `yaml:"auth" mapstructure:"auth"`
	Docker  DockerConfig  `yaml:"docker" mapstructure:"docker"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string   `yaml:"host" mapstructure:"host"`
	Port            int      `yaml:"port" mapstructure:"port"`
	StaticDir       string   `yaml:"static_dir" mapstructure:"static_dir"`
	EnableUI        bool     `yaml:"enable_ui" mapstructure:"enable_ui"`
	CORSOrigins     []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeout string   `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// AuthConfig controls authentication settings.
type AuthConfig struct {
	Enabled            bool   `yaml:"enabled" mapstructure:"enabled"`
	JWTSecret          string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL           string `yaml:"token_ttl" mapstructure:"token_ttl"`
	AdminUsername      string `yaml:"admin_username" mapstructure:"admin_username"`
	AdminPassword      string `yaml:"admin_password" mapstructure:"admin_password"`
	LoginRatePerMinute int    `yaml:"login_rate_per_minute" mapstructure:"login_rate_per_minute"`
}

// DockerConfig locates the Docker engine API.
type DockerConfig struct {
	Socket  string `yaml:"socket" mapstructure:"socket"`
	Timeout string `yaml:"timeout" mapstructure:"timeout"`
}

// MonitorConfig names the containers and paths the dashboard reports on.
type MonitorConfig struct {
	Services          []string `yaml:"services" mapstructure:"services"`
	FirebirdContainer string   `yaml:"firebird_container" mapstructure:"firebird_container"`
	TunnelContainer   string   `yaml:"tunnel_container" mapstructure:"tunnel_container"`
	DiskPath          string   `yaml:"disk_path" mapstructure:"disk_path"`
	Hostname          string   `yaml:"hostname" mapstructure:"hostname"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file on top of the
// defaults. Environment variables referenced as ${VAR_NAME} in the file are
// expanded before parsing.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	cfg := DefaultYAMLConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            4000,
			EnableUI:        true,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: "30s",
		},
		Auth: AuthConfig{
			Enabled:            true,
			TokenTTL:           "12h",
			LoginRatePerMinute: 10,
		},
		Docker: DockerConfig{
			Socket:  "/var/run/docker.sock",
			Timeout: "10s",
		},
		Monitor: MonitorConfig{
			Services:          []string{"chalana-api", "firebird25", "nginx-proxy-manager", "cloudflared"},
			FirebirdContainer: "firebird25",
			TunnelContainer:   "cloudflared",
			DiskPath:          "/",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	data, err := yaml.Marshal(DefaultYAMLConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// TokenTTLDuration parses Auth.TokenTTL, falling back to 12h when unset or
// invalid.
func (c *YAMLConfig) TokenTTLDuration() time.Duration {
	return parseDuration(c.Auth.TokenTTL, 12*time.Hour)
}

// ShutdownTimeoutDuration parses Server.ShutdownTimeout.
func (c *YAMLConfig) ShutdownTimeoutDuration() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 30*time.Second)
}

// DockerTimeoutDuration parses Docker.Timeout. Zero disables the timeout.
func (c *YAMLConfig) DockerTimeoutDuration() time.Duration {
	return parseDuration(c.Docker.Timeout, 10*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
