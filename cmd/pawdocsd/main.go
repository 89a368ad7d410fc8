package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/pawdocs/internal/cli"
	"github.com/cloo-solutions/pawdocs/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pawdocsd",
		Short: "Pawdocs daemon",
		Long:  "Pawdocs daemon for running the document question-answering API and managing its schema",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
