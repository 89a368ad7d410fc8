package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/cloo-solutions/pawdocs/internal/api"
	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/cloo-solutions/pawdocs/internal/logging"
	"github.com/cloo-solutions/pawdocs/internal/service"
	"go.uber.org/zap"
)

const (
	DefaultMaxUploadBytes = 10 << 20
	uploadFormField       = "pdf"
	// multipart framing and the extra form fields ride on top of the file
	multipartSlack = 1 << 20
)

type DocumentService interface {
	Ingest(ctx context.Context, in service.IngestInput) (*domain.IngestResult, error)
	Delete(ctx context.Context, tenantID, filename string) error
	Stats(ctx context.Context, tenantID string) (*domain.IndexStats, error)
}

type DocumentHandlerConfig struct {
	MaxUploadBytes int64
	Debug          bool
}

type DocumentHandler struct {
	svc    DocumentService
	cfg    DocumentHandlerConfig
	logger *zap.Logger
}

func NewDocumentHandler(svc DocumentService, cfg DocumentHandlerConfig, logger *zap.Logger) *DocumentHandler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &DocumentHandler{svc: svc, cfg: cfg, logger: logging.OrNop(logger)}
}

type UploadResponse struct {
	Message       string `json:"message"`
	Filename      string `json:"filename"`
	TextLength    int    `json:"textLength"`
	ChunksCreated int    `json:"chunksCreated"`
	VectorsStored int    `json:"vectorsStored"`
	Preview       string `json:"preview"`
}

type DeleteRequest struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
	Filename string `json:"filename"`
}

type DeleteResponse struct {
	Message  string `json:"message"`
	TenantID string `json:"tenantId"`
}

type StatsResponse struct {
	TenantID     string `json:"tenantId"`
	TotalVectors int    `json:"totalVectors"`
}

func (h *DocumentHandler) tooLargeMessage() string {
	return fmt.Sprintf("File too large. Maximum size allowed is %dMB", h.cfg.MaxUploadBytes>>20)
}

// Upload ingests the PDF sent in the "pdf" multipart field.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+multipartSlack)

	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			api.Error(w, http.StatusBadRequest, h.tooLargeMessage())
		case errors.Is(err, http.ErrNotMultipart):
			api.Error(w, http.StatusBadRequest, "No file uploaded")
		default:
			api.Error(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > h.cfg.MaxUploadBytes {
		api.Error(w, http.StatusBadRequest, h.tooLargeMessage())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	filename := filepath.Base(header.Filename)
	tenantID := resolveTenant(r, r.FormValue("tenantId"), r.FormValue("userId"))
	h.logger.Info("processing upload",
		zap.String("filename", filename),
		zap.String("tenant_id", tenantID),
		zap.Int("bytes", len(data)))

	result, err := h.svc.Ingest(r.Context(), service.IngestInput{
		Data:     data,
		Filename: filename,
		TenantID: tenantID,
	})
	if err != nil {
		h.logger.Warn("upload failed", zap.String("filename", filename), zap.Error(err))
		api.HandleError(w, err, h.cfg.Debug)
		return
	}

	api.JSON(w, http.StatusOK, UploadResponse{
		Message:       "PDF processed and stored successfully",
		Filename:      result.Filename,
		TextLength:    result.TextLength,
		ChunksCreated: result.ChunkCount,
		VectorsStored: result.VectorCount,
		Preview:       result.Preview,
	})
}

// Delete removes one document of the tenant, or all of them when no
// filename is given.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	tenantID := resolveTenant(r, req.TenantID, req.UserID)
	if err := h.svc.Delete(r.Context(), tenantID, req.Filename); err != nil {
		api.HandleError(w, err, h.cfg.Debug)
		return
	}

	message := "Deleted all documents for user"
	if req.Filename != "" {
		message = "Deleted document: " + req.Filename
	}
	api.JSON(w, http.StatusOK, DeleteResponse{Message: message, TenantID: tenantID})
}

func (h *DocumentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenantID := resolveTenant(r, q.Get("tenantId"), q.Get("userId"))

	stats, err := h.svc.Stats(r.Context(), tenantID)
	if err != nil {
		api.HandleError(w, err, h.cfg.Debug)
		return
	}

	api.JSON(w, http.StatusOK, StatsResponse{TenantID: stats.TenantID, TotalVectors: stats.TotalVectors})
}
