//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/pawdocs/internal/api/handlers"
	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/cloo-solutions/pawdocs/internal/repository"
	"github.com/cloo-solutions/pawdocs/internal/server"
	"github.com/cloo-solutions/pawdocs/internal/service"
	"github.com/cloo-solutions/pawdocs/internal/storage"
	"github.com/cloo-solutions/pawdocs/internal/testutil"
	"github.com/cloo-solutions/pawdocs/internal/vectorindex"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	e2eDimension = 16
	e2eBucket    = "e2e-documents"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	S3Client   *storage.S3Client
	Server     *httptest.Server
	Generator  *switchableGenerator
	BinaryDir  string
	HTTPClient *http.Client
}

// SetupE2EEnv starts postgres (pgvector) and RustFS and serves the full
// router against them.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.S3AccessKey,
		SecretAccessKey: testutil.S3SecretKey,
		Bucket:          e2eBucket,
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	gen := &switchableGenerator{}
	index := vectorindex.NewClient(repository.NewVectorRecordRepository(pool), vectorindex.Config{}, nil)
	embedder := hashEmbedder{}

	ingestion := service.NewIngestionService(pageExtractor{}, embedder, index, service.IngestionConfig{
		Chunking: service.ChunkConfig{Size: 120, Overlap: 20},
	}, nil).WithArchiver(s3Client)
	answers := service.NewAnswerService(embedder, index, []service.Generator{gen}, service.AnswerConfig{
		GenerationTimeout: 5 * time.Second,
	}, nil)

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(ingestion, handlers.DocumentHandlerConfig{}, nil),
		AskHandler:      handlers.NewAskHandler(answers, false, nil),
		HealthCheck:     pool.Ping,
	})

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		S3Client:   s3Client,
		Server:     httptest.NewServer(router),
		Generator:  gen,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildCLI builds the pawdocs binary
func (e *E2ETestEnv) BuildCLI() {
	tmpDir, err := os.MkdirTemp("", "pawdocs-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "pawdocs"), "./cmd/pawdocs")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build pawdocs: %v\n%s", err, out)
	}
}

// RunCLI runs the pawdocs CLI against the test server with an isolated
// config directory.
func (e *E2ETestEnv) RunCLI(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "pawdocs"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"PAWDOCS_API_URL="+e.Server.URL,
		"HOME="+workDir,
		"XDG_CONFIG_HOME="+filepath.Join(workDir, ".config"),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Upload posts a PDF as multipart form data to path.
func (e *E2ETestEnv) Upload(path, tenantID, filename string, data []byte) (int, []byte) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if tenantID != "" {
		if err := mw.WriteField("tenantId", tenantID); err != nil {
			e.T.Fatalf("failed to write field: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("pdf", filename)
	if err != nil {
		e.T.Fatalf("failed to create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		e.T.Fatalf("failed to write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		e.T.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, e.Server.URL+path, &body)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

// JSON sends body as JSON and decodes the response into out when non-nil.
func (e *E2ETestEnv) JSON(method, path string, body, out any) int {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.Server.URL+path, reader)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, raw := e.do(req)
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			e.T.Fatalf("failed to decode %s %s response %q: %v", method, path, raw, err)
		}
	}
	return status
}

func (e *E2ETestEnv) do(req *http.Request) (int, []byte) {
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read response: %v", err)
	}
	return resp.StatusCode, raw
}

// pageExtractor treats everything after the PDF signature as the document text.
type pageExtractor struct{}

func (pageExtractor) Extract(_ context.Context, data []byte) (string, error) {
	text := string(data)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	return text, nil
}

// hashEmbedder spreads word hashes over a small vector so chunks sharing
// words score close together.
type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, e2eDimension)
	for i := range v {
		v[i] = 0.01
	}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		var h uint32 = 2166136261
		for _, b := range []byte(strings.Trim(w, ".,?!")) {
			h = (h ^ uint32(b)) * 16777619
		}
		v[h%e2eDimension]++
	}
	return v, nil
}

func (e hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

// switchableGenerator echoes the best matching excerpt, or fails while down.
type switchableGenerator struct {
	down bool
}

func (g *switchableGenerator) Name() string { return "e2e" }

func (g *switchableGenerator) Generate(_ context.Context, p domain.Prompt) (string, error) {
	if g.down {
		return "", fmt.Errorf("model offline")
	}
	first := strings.SplitN(p.User, "]:\n", 2)
	if len(first) < 2 {
		return "", fmt.Errorf("prompt without excerpts")
	}
	return "Based on your records: " + strings.SplitN(first[1], "\n\n", 2)[0], nil
}

func pdf(text string) []byte {
	return []byte("%PDF-1.4\n" + text)
}
