package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type AskRequest struct {
	Query    string `json:"query"`
	TenantID string `json:"tenantId,omitempty"`
	TopK     int    `json:"topK,omitempty"`
}

type Source struct {
	Filename   string  `json:"filename"`
	Score      float64 `json:"score"`
	ChunkIndex int     `json:"chunkIndex"`
	Preview    string  `json:"preview"`
}

type AskResult struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	ChunksUsed int      `json:"chunksUsed"`
}

// UnavailableResult is returned with 503 when no model could answer.
type UnavailableResult struct {
	Error           string `json:"error"`
	Suggestion      string `json:"suggestion"`
	RelevantContext []struct {
		Text     string  `json:"text"`
		Filename string  `json:"filename"`
		Score    float64 `json:"score"`
	} `json:"relevantContext"`
}

func AskCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about uploaded documents",
		Long: `Answers a question from the tenant's uploaded documents and lists the
excerpts the answer is grounded on.

Examples:
  pawdocs ask "When is Bella's next rabies booster due?"
  pawdocs ask --top-k 10 "What medication was prescribed?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(api, strings.Join(args, " "), topK, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of excerpts to retrieve (server default when 0)")

	return cmd
}

func runAsk(api *APIClient, question string, topK int, outputJSON bool) error {
	var result AskResult
	err := api.Post("/ask", AskRequest{Query: question, TenantID: api.TenantID(), TopK: topK}, &result)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		return printUnavailable(apiErr, outputJSON)
	}
	if err != nil {
		return err
	}

	if outputJSON {
		printJSON(result)
		return nil
	}

	fmt.Println(result.Answer)
	fmt.Println()
	fmt.Printf("Sources (%d):\n", result.ChunksUsed)
	for _, s := range result.Sources {
		fmt.Printf("  [%.3f] %s #%d: %s\n", s.Score, s.Filename, s.ChunkIndex, strings.ReplaceAll(s.Preview, "\n", " "))
	}
	return nil
}

func printUnavailable(apiErr *APIError, outputJSON bool) error {
	var result UnavailableResult
	if err := json.Unmarshal(apiErr.Body, &result); err != nil {
		return apiErr
	}

	if outputJSON {
		printJSON(result)
	} else {
		fmt.Fprintln(os.Stderr, result.Error)
		if result.Suggestion != "" {
			fmt.Fprintln(os.Stderr, result.Suggestion)
		}
		fmt.Println("Most relevant excerpts:")
		for i, c := range result.RelevantContext {
			fmt.Printf("\n[%d] %s (score %.3f)\n%s\n", i+1, c.Filename, c.Score, c.Text)
		}
	}
	return apiErr
}
