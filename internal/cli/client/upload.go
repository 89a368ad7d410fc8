package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// UploadResult mirrors the server's upload response.
type UploadResult struct {
	Message       string `json:"message"`
	Filename      string `json:"filename"`
	TextLength    int    `json:"textLength"`
	ChunksCreated int    `json:"chunksCreated"`
	VectorsStored int    `json:"vectorsStored"`
	Preview       string `json:"preview"`
}

func UploadCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "upload <file.pdf>...",
		Short: "Upload PDF documents for question answering",
		Long: `Uploads one or more PDFs. Each file is extracted, chunked, embedded and
indexed under the tenant before the command returns.

Examples:
  pawdocs upload vaccination-record.pdf
  pawdocs upload --tenant owner-42 *.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpload(api, args, outputJSON, quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not report upload progress")

	return cmd
}

func runUpload(api *APIClient, files []string, outputJSON, quiet bool) error {
	var results []UploadResult
	var failed []string

	for _, path := range files {
		if !strings.EqualFold(filepath.Ext(path), ".pdf") && !quiet {
			fmt.Fprintf(os.Stderr, "warning: %s does not have a .pdf extension\n", path)
		}

		var progress ProgressFunc
		if !quiet && !outputJSON {
			progress = func(current, total int64) {
				if total > 0 {
					fmt.Fprintf(os.Stderr, "\rUploading %s: %d%%", filepath.Base(path), current*100/total)
				}
			}
		}

		var result UploadResult
		err := api.UploadFile(path, &result, progress)
		if progress != nil {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to upload %s: %v\n", path, err)
			failed = append(failed, path)
			continue
		}
		results = append(results, result)

		if !outputJSON {
			fmt.Printf("%s: %d chunks, %d vectors stored (%d characters)\n",
				result.Filename, result.ChunksCreated, result.VectorsStored, result.TextLength)
			if result.Preview != "" {
				fmt.Printf("  %s\n", strings.ReplaceAll(result.Preview, "\n", " "))
			}
		}
	}

	if outputJSON {
		printJSON(results)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d uploads failed", len(failed), len(files))
	}
	return nil
}
