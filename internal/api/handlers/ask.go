package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/pawdocs/internal/api"
	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/cloo-solutions/pawdocs/internal/logging"
	"github.com/cloo-solutions/pawdocs/internal/service"
	"go.uber.org/zap"
)

const sourcePreviewLength = 150

const (
	msgNoRelevantContent = "No relevant information found. Please upload a PDF first."
	msgAIUnavailable     = "AI service unavailable. Please check your generation API key and model configuration."
	msgAISuggestion      = "Your OpenRouter API key may be invalid, expired, or you may need to add credits to your account."
)

type AnswerService interface {
	Answer(ctx context.Context, in service.AskInput) (*domain.Answer, error)
}

type AskHandler struct {
	svc    AnswerService
	debug  bool
	logger *zap.Logger
}

func NewAskHandler(svc AnswerService, debug bool, logger *zap.Logger) *AskHandler {
	return &AskHandler{svc: svc, debug: debug, logger: logging.OrNop(logger)}
}

type AskRequest struct {
	Query    string `json:"query"`
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
	TopK     int    `json:"topK"`
}

type SourceResponse struct {
	Filename   string  `json:"filename"`
	Score      float32 `json:"score"`
	ChunkIndex int     `json:"chunkIndex"`
	Preview    string  `json:"preview"`
}

type AskResponse struct {
	Answer     string           `json:"answer"`
	Sources    []SourceResponse `json:"sources"`
	ChunksUsed int              `json:"chunksUsed"`
}

type ContextResponse struct {
	Text     string  `json:"text"`
	Filename string  `json:"filename"`
	Score    float32 `json:"score"`
}

type UnavailableResponse struct {
	Error           string            `json:"error"`
	Suggestion      string            `json:"suggestion"`
	RelevantContext []ContextResponse `json:"relevantContext"`
}

func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.svc.Answer(r.Context(), service.AskInput{
		Query:    req.Query,
		TenantID: resolveTenant(r, req.TenantID, req.UserID),
		TopK:     req.TopK,
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoRelevantContent):
		api.Error(w, http.StatusNotFound, msgNoRelevantContent)
		return
	case errors.Is(err, domain.ErrGenerationUnavailable) && answer != nil:
		h.logger.Warn("answering degraded", zap.String("reason", answer.Reason))
		api.JSON(w, http.StatusServiceUnavailable, UnavailableResponse{
			Error:           msgAIUnavailable,
			Suggestion:      msgAISuggestion,
			RelevantContext: toContext(answer.Sources),
		})
		return
	default:
		api.HandleError(w, err, h.debug)
		return
	}

	sources := make([]SourceResponse, len(answer.Sources))
	for i, c := range answer.Sources {
		sources[i] = SourceResponse{
			Filename:   c.Filename,
			Score:      c.Score,
			ChunkIndex: c.ChunkIndex,
			Preview:    sourcePreview(c.Text),
		}
	}

	api.JSON(w, http.StatusOK, AskResponse{
		Answer:     answer.Text,
		Sources:    sources,
		ChunksUsed: len(answer.Sources),
	})
}

func toContext(chunks []domain.RetrievedChunk) []ContextResponse {
	out := make([]ContextResponse, len(chunks))
	for i, c := range chunks {
		out[i] = ContextResponse{Text: c.Text, Filename: c.Filename, Score: c.Score}
	}
	return out
}

// sourcePreview keeps the first 150 characters and always marks the cut.
func sourcePreview(text string) string {
	r := []rune(text)
	if len(r) > sourcePreviewLength {
		r = r[:sourcePreviewLength]
	}
	return string(r) + "..."
}
