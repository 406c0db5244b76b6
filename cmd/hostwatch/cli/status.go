package cli

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/hostwatch/hostwatch/internal/model"
)

func newStatusCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check if the hostwatch server is responding",
		Long:  "Probe the server's /health endpoint. The address defaults to the configured server.host and server.port.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				cfg, err := loadConfig()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				host := cfg.Server.Host
				if host == "" || host == "0.0.0.0" || host == "::" {
					host = "127.0.0.1"
				}
				url = "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port))
			}

			healthAddr := url + "/health"
			client := &http.Client{Timeout: 2 * time.Second}
			resp, err := client.Get(healthAddr)
			if err != nil {
				return fmt.Errorf("server is not responding at %s: %w", healthAddr, err)
			}
			defer resp.Body.Close()

			var health model.HealthResponse
			if err := json.NewDecoder(resp.Body).Decode(&health); err != nil || resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected health response from %s (status %d)", healthAddr, resp.StatusCode)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Server is running\n  Health:  %s (%s)\n", healthAddr, health.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Base URL of the server (e.g. http://127.0.0.1:4000)")

	return cmd
}
