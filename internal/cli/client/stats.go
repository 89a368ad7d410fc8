package client

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

type StatsResult struct {
	TenantID     string `json:"tenantId"`
	TotalVectors int    `json:"totalVectors"`
}

func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many vectors the tenant has indexed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runStats(api, outputJSON)
		},
	}
}

func runStats(api *APIClient, outputJSON bool) error {
	path := "/documents"
	if api.TenantID() != "" {
		path += "?tenantId=" + url.QueryEscape(api.TenantID())
	}

	var result StatsResult
	if err := api.Get(path, &result); err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}

	if outputJSON {
		printJSON(result)
	} else {
		fmt.Printf("Tenant: %s\n", result.TenantID)
		fmt.Printf("Vectors: %d\n", result.TotalVectors)
	}
	return nil
}
