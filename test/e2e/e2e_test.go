//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloo-solutions/pawdocs/internal/api/handlers"
	"github.com/cloo-solutions/pawdocs/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	vaccineRecord = "Luna received her rabies vaccine on 12 March 2025. " +
		"The next rabies booster is due in March 2028. " +
		"Distemper and parvovirus boosters were given at the same visit."
	dietRecord = "Max should eat a renal support diet twice daily. " +
		"Avoid high phosphorus treats. Recheck kidney values in six months."
)

func TestE2E_UploadAskDelete(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	status, raw := env.Upload("/pdf-upload", "owner-1", "luna.pdf", pdf(vaccineRecord))
	require.Equal(t, http.StatusOK, status, string(raw))

	var up handlers.UploadResponse
	require.NoError(t, json.Unmarshal(raw, &up))
	assert.Equal(t, "luna.pdf", up.Filename)
	assert.Equal(t, len(vaccineRecord), up.TextLength)
	assert.Greater(t, up.ChunksCreated, 1)
	assert.Equal(t, up.ChunksCreated, up.VectorsStored)

	// The archived copy lands under the tenant prefix.
	meta, err := env.S3Client.HeadObject(env.Ctx, storage.ObjectKey("owner-1", "luna.pdf"))
	require.NoError(t, err)
	assert.Equal(t, int64(len(pdf(vaccineRecord))), meta.ContentLength)

	var stats handlers.StatsResponse
	require.Equal(t, http.StatusOK, env.JSON(http.MethodGet, "/documents?tenantId=owner-1", nil, &stats))
	assert.Equal(t, up.VectorsStored, stats.TotalVectors)

	var answer handlers.AskResponse
	status = env.JSON(http.MethodPost, "/ask", map[string]any{
		"query":    "When is the next rabies booster due?",
		"tenantId": "owner-1",
		"topK":     2,
	}, &answer)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.HasPrefix(answer.Answer, "Based on your records:"))
	assert.Equal(t, 2, answer.ChunksUsed)
	for _, s := range answer.Sources {
		assert.Equal(t, "luna.pdf", s.Filename)
		assert.True(t, strings.HasSuffix(s.Preview, "..."))
	}

	var deleted handlers.DeleteResponse
	require.Equal(t, http.StatusOK, env.JSON(http.MethodDelete, "/documents",
		map[string]string{"tenantId": "owner-1", "filename": "luna.pdf"}, &deleted))
	assert.Equal(t, "owner-1", deleted.TenantID)

	require.Equal(t, http.StatusOK, env.JSON(http.MethodGet, "/documents?tenantId=owner-1", nil, &stats))
	assert.Zero(t, stats.TotalVectors)

	_, err = env.S3Client.HeadObject(env.Ctx, storage.ObjectKey("owner-1", "luna.pdf"))
	assert.Error(t, err)

	assert.Equal(t, http.StatusNotFound, env.JSON(http.MethodPost, "/ask",
		map[string]string{"query": "rabies booster", "tenantId": "owner-1"}, nil))
}

func TestE2E_TenantIsolation(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	status, raw := env.Upload("/documents", "clinic-a", "luna.pdf", pdf(vaccineRecord))
	require.Equal(t, http.StatusOK, status, string(raw))
	status, raw = env.Upload("/documents", "clinic-b", "max.pdf", pdf(dietRecord))
	require.Equal(t, http.StatusOK, status, string(raw))

	var answer handlers.AskResponse
	require.Equal(t, http.StatusOK, env.JSON(http.MethodPost, "/ask", map[string]any{
		"query":    "rabies booster",
		"tenantId": "clinic-b",
		"topK":     10,
	}, &answer))
	for _, s := range answer.Sources {
		assert.Equal(t, "max.pdf", s.Filename)
	}

	// Deleting everything for one tenant leaves the other untouched.
	require.Equal(t, http.StatusOK, env.JSON(http.MethodDelete, "/documents",
		map[string]string{"tenantId": "clinic-a"}, nil))

	var stats handlers.StatsResponse
	require.Equal(t, http.StatusOK, env.JSON(http.MethodGet, "/documents?tenantId=clinic-a", nil, &stats))
	assert.Zero(t, stats.TotalVectors)
	require.Equal(t, http.StatusOK, env.JSON(http.MethodGet, "/documents?tenantId=clinic-b", nil, &stats))
	assert.Positive(t, stats.TotalVectors)
}

func TestE2E_SameFilenameAcrossTenants(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	status, raw := env.Upload("/documents", "clinic-a", "luna.pdf", pdf(vaccineRecord))
	require.Equal(t, http.StatusOK, status, string(raw))
	status, raw = env.Upload("/documents", "clinic-b", "luna.pdf", pdf(dietRecord))
	require.Equal(t, http.StatusOK, status, string(raw))

	var before handlers.StatsResponse
	require.Equal(t, http.StatusOK, env.JSON(http.MethodGet, "/documents?tenantId=clinic-b", nil, &before))
	require.Positive(t, before.TotalVectors)

	var answer handlers.AskResponse
	require.Equal(t, http.StatusOK, env.JSON(http.MethodPost, "/ask", map[string]any{
		"query":    "rabies booster",
		"tenantId": "clinic-b",
		"topK":     10,
	}, &answer))
	require.NotEmpty(t, answer.Sources)
	for _, s := range answer.Sources {
		assert.Equal(t, "luna.pdf", s.Filename)
		assert.NotContains(t, s.Preview, "rabies")
	}

	require.Equal(t, http.StatusOK, env.JSON(http.MethodDelete, "/documents",
		map[string]string{"tenantId": "clinic-a", "filename": "luna.pdf"}, nil))

	var after handlers.StatsResponse
	require.Equal(t, http.StatusOK, env.JSON(http.MethodGet, "/documents?tenantId=clinic-b", nil, &after))
	assert.Equal(t, before.TotalVectors, after.TotalVectors)

	_, err := env.S3Client.HeadObject(env.Ctx, storage.ObjectKey("clinic-a", "luna.pdf"))
	assert.Error(t, err)
	_, err = env.S3Client.HeadObject(env.Ctx, storage.ObjectKey("clinic-b", "luna.pdf"))
	assert.NoError(t, err)
}

func TestE2E_ReingestIsIdempotent(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	var first, second handlers.StatsResponse
	for i, out := range []*handlers.StatsResponse{&first, &second} {
		status, raw := env.Upload("/documents", "owner-1", "luna.pdf", pdf(vaccineRecord))
		require.Equal(t, http.StatusOK, status, "upload %d: %s", i, raw)
		require.Equal(t, http.StatusOK, env.JSON(http.MethodGet, "/documents?tenantId=owner-1", nil, out))
	}
	assert.Equal(t, first.TotalVectors, second.TotalVectors)
}

func TestE2E_DegradedAnswer(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	status, raw := env.Upload("/documents", "owner-1", "luna.pdf", pdf(vaccineRecord))
	require.Equal(t, http.StatusOK, status, string(raw))

	env.Generator.down = true

	var resp handlers.UnavailableResponse
	status = env.JSON(http.MethodPost, "/ask", map[string]string{
		"query":    "rabies booster",
		"tenantId": "owner-1",
	}, &resp)
	require.Equal(t, http.StatusServiceUnavailable, status)
	assert.NotEmpty(t, resp.Error)
	assert.NotEmpty(t, resp.Suggestion)
	assert.NotEmpty(t, resp.RelevantContext)
}

func TestE2E_Health(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	var body map[string]string
	require.Equal(t, http.StatusOK, env.JSON(http.MethodGet, "/health", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestE2E_CLIWorkflow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildCLI()

	workDir := t.TempDir()
	pdfPath := filepath.Join(workDir, "luna.pdf")
	require.NoError(t, os.WriteFile(pdfPath, pdf(vaccineRecord), 0o644))

	out, err := env.RunCLI(workDir, "init", "--url", env.Server.URL, "--tenant-id", "owner-cli")
	require.NoError(t, err, out)

	out, err = env.RunCLI(workDir, "upload", "--quiet", pdfPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "luna.pdf")

	out, err = env.RunCLI(workDir, "ask", "When is the next rabies booster due?")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Based on your records:")

	out, err = env.RunCLI(workDir, "stats", "--output")
	require.NoError(t, err, out)
	var stats handlers.StatsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, "owner-cli", stats.TenantID)
	assert.Positive(t, stats.TotalVectors)

	out, err = env.RunCLI(workDir, "delete", "--all")
	require.NoError(t, err, out)

	out, err = env.RunCLI(workDir, "stats", "--output")
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Zero(t, stats.TotalVectors)
}
