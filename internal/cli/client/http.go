package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIURL   = "PAWDOCS_API_URL"
	envTenantID = "PAWDOCS_TENANT_ID"

	defaultAPIURL = "http://localhost:8080"
)

type APIClient struct {
	baseURL    string
	tenantID   string
	httpClient *http.Client
}

// NewAPIClientWithCmd creates an APIClient with config cascade: flag → env → global config → default
// If cmd is nil, skips flag checking and goes directly to env → global config
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	_ = godotenv.Load()

	var flagURL, flagTenant string
	if cmd != nil {
		flagURL, _ = cmd.Flags().GetString("api-url")
		flagTenant, _ = cmd.Flags().GetString("tenant")
	}

	baseURL, _ := ResolveAPIURL(flagURL)
	tenantID, _ := ResolveTenantID(flagTenant)

	return NewAPIClientWithConfig(baseURL, tenantID)
}

// NewAPIClientWithConfig creates an APIClient with explicit settings.
func NewAPIClientWithConfig(baseURL, tenantID string) (*APIClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
	}
	return &APIClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		tenantID: tenantID,
		httpClient: &http.Client{
			// ingestion embeds every chunk before answering
			Timeout: 5 * time.Minute,
		},
	}, nil
}

func (c *APIClient) TenantID() string {
	return c.tenantID
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Message    string
	// Body is the raw response, some errors carry more than a message.
	Body []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Get performs a GET request and decodes the JSON response into out.
func (c *APIClient) Get(path string, out interface{}) error {
	return c.doJSON(http.MethodGet, path, nil, out)
}

// Post performs a POST request with JSON body.
func (c *APIClient) Post(path string, body, out interface{}) error {
	return c.doJSON(http.MethodPost, path, body, out)
}

// Delete performs a DELETE request with JSON body.
func (c *APIClient) Delete(path string, body, out interface{}) error {
	return c.doJSON(http.MethodDelete, path, body, out)
}

func (c *APIClient) doJSON(method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *APIClient) send(req *http.Request, out interface{}) error {
	if c.tenantID != "" {
		req.Header.Set("X-Tenant-ID", c.tenantID)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody), Body: respBody}
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// UploadFile sends a PDF as the "pdf" field of a multipart form.
func (c *APIClient) UploadFile(filePath string, out interface{}, onProgress ProgressFunc) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if c.tenantID != "" {
		if err := mw.WriteField("tenantId", c.tenantID); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("pdf", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return err
	}

	size := int64(body.Len())
	var reader io.Reader = &body
	if onProgress != nil {
		reader = &progressReader{reader: &body, total: size, onProgress: onProgress}
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/documents", reader)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.ContentLength = size

	return c.send(req, out)
}

// ProgressFunc is a callback for reporting upload progress.
type ProgressFunc func(current, total int64)

// progressReader wraps an io.Reader and reports progress.
type progressReader struct {
	reader     io.Reader
	total      int64
	current    int64
	onProgress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	if pr.onProgress != nil {
		pr.onProgress(pr.current, pr.total)
	}
	return n, err
}

func printJSON(v interface{}) {
	output, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(output))
}
