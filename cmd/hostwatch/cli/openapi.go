package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hostwatch/hostwatch/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		outputFile string
		serverURL  string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification",
		Long:  `Generate the OpenAPI 3 document describing every hostwatch HTTP endpoint.`,
		Example: `  hostwatch openapi                  # print to stdout
  hostwatch openapi -o openapi.json  # write to file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			doc := openapi.Generate(openapi.Routes, openapi.Options{
				Version:     versionString(),
				ServerURL:   serverURL,
				AuthEnabled: cfg.Auth.Enabled,
			})
			jsonBytes, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal openapi document: %w", err)
			}

			if outputFile == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(jsonBytes))
				return nil
			}
			if err := os.WriteFile(outputFile, append(jsonBytes, '\n'), 0644); err != nil {
				return fmt.Errorf("write %s: %w", outputFile, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write spec to file instead of stdout")
	cmd.Flags().StringVar(&serverURL, "server-url", "", "Server URL to advertise in the document")

	return cmd
}
