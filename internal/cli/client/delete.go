package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

type DeleteRequest struct {
	TenantID string `json:"tenantId,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type DeleteResult struct {
	Message  string `json:"message"`
	TenantID string `json:"tenantId"`
}

func DeleteCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "delete [filename]",
		Short: "Delete an uploaded document, or all of them",
		Long: `Removes a document's vectors from the index.

Examples:
  # Delete one document
  pawdocs delete vaccination-record.pdf

  # Delete every document of the tenant
  pawdocs delete --all`,
		Args: func(cmd *cobra.Command, args []string) error {
			allFlag, _ := cmd.Flags().GetBool("all")
			if allFlag {
				if len(args) != 0 {
					return fmt.Errorf("--all does not take a filename")
				}
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("requires exactly 1 argument (filename) or use --all flag")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")

			filename := ""
			if !all {
				filename = args[0]
			}
			return runDelete(api, filename, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Delete every document of the tenant")

	return cmd
}

func runDelete(api *APIClient, filename string, outputJSON bool) error {
	var result DeleteResult
	if err := api.Delete("/documents", DeleteRequest{TenantID: api.TenantID(), Filename: filename}, &result); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	if outputJSON {
		printJSON(result)
	} else {
		fmt.Printf("%s (tenant %s)\n", result.Message, result.TenantID)
	}
	return nil
}
