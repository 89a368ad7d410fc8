package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitCmd stores the API URL and tenant in the global config.
func InitCmd() *cobra.Command {
	var (
		apiURL   string
		tenantID string
		reset    bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Save the API URL and tenant for later commands",
		Long:  "Writes the API URL and tenant to the per-user config file. Flags and PAWDOCS_API_URL / PAWDOCS_TENANT_ID still take precedence.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			if reset {
				if err := DeleteGlobalConfig(); err != nil {
					return err
				}
				fmt.Println("config removed")
				return nil
			}
			return runInit(apiURL, tenantID, outputJSON)
		},
	}

	cmd.Flags().StringVar(&apiURL, "url", "", "API base URL (default: http://localhost:8080)")
	cmd.Flags().StringVar(&tenantID, "tenant-id", "", "Tenant to scope documents and questions to")
	cmd.Flags().BoolVar(&reset, "reset", false, "Remove the saved config")

	return cmd
}

func runInit(apiURL, tenantID string, outputJSON bool) error {
	existing, err := LoadGlobalConfig()
	if err != nil {
		return err
	}
	config := &GlobalConfig{APIURL: defaultAPIURL}
	if existing != nil {
		config = existing
	}
	if apiURL != "" {
		config.APIURL = apiURL
	}
	if tenantID != "" {
		config.TenantID = tenantID
	}

	if _, err := NewAPIClientWithConfig(config.APIURL, config.TenantID); err != nil {
		return err
	}
	if err := SaveGlobalConfig(config); err != nil {
		return err
	}

	path, _ := GetConfigPath()
	if outputJSON {
		printJSON(map[string]string{"config_path": path, "api_url": config.APIURL, "tenant_id": config.TenantID})
	} else {
		fmt.Printf("Saved %s\n", path)
		fmt.Printf("API URL: %s\n", config.APIURL)
		if config.TenantID != "" {
			fmt.Printf("Tenant: %s\n", config.TenantID)
		}
	}
	return nil
}
