package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/pawdocs/internal/cli"
	"github.com/cloo-solutions/pawdocs/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "pawdocs",
		Short: "Pawdocs CLI - ask questions about your pet's health documents",
		Long: `Pawdocs CLI uploads pet health PDFs and answers questions grounded on them.

Environment variables:
  PAWDOCS_API_URL     API base URL (default: http://localhost:8080)
  PAWDOCS_TENANT_ID   Tenant to scope documents and questions to (server default when unset)`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	rootCmd.PersistentFlags().String("tenant", "", "Tenant ID (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.StatsCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
