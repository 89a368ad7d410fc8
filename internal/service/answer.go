package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/cloo-solutions/pawdocs/internal/logging"
	"github.com/cloo-solutions/pawdocs/internal/metrics"
	"github.com/cloo-solutions/pawdocs/internal/telemetry"
	"go.uber.org/zap"
)

const (
	DefaultTopK = 5
	MaxTopK     = 50
)

const systemPrompt = "You are a helpful pet-health AI assistant. Answer questions based on the provided document excerpts. " +
	"If the information isn't in the excerpts, say so clearly. " +
	"Always recommend consulting a veterinarian or healthcare professional for medical decisions."

const (
	reasonNoGenerators    = "no answer generator is configured"
	reasonAllModelsFailed = "every answer generator failed"
)

type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorSearcher interface {
	Query(ctx context.Context, vector []float32, topK int, filter domain.RecordFilter) ([]domain.RetrievedChunk, error)
}

// Generator produces an answer from a prompt with one language model.
type Generator interface {
	Name() string
	Generate(ctx context.Context, p domain.Prompt) (string, error)
}

type AnswerConfig struct {
	DefaultTopK       int
	GenerationTimeout time.Duration
}

type AskInput struct {
	Query    string
	TenantID string
	TopK     int
}

// AnswerService answers questions from a tenant's indexed documents.
type AnswerService struct {
	embedder   QueryEmbedder
	index      VectorSearcher
	generators []Generator
	cfg        AnswerConfig
	logger     *zap.Logger
}

func NewAnswerService(embedder QueryEmbedder, index VectorSearcher, generators []Generator, cfg AnswerConfig, logger *zap.Logger) *AnswerService {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	return &AnswerService{
		embedder:   embedder,
		index:      index,
		generators: generators,
		cfg:        cfg,
		logger:     logging.OrNop(logger),
	}
}

// Answer retrieves the best matching chunks and asks the generators in
// order. When none succeeds it returns a degraded answer carrying the
// retrieved chunks together with ErrGenerationUnavailable.
func (s *AnswerService) Answer(ctx context.Context, in AskInput) (*domain.Answer, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	tenantID := tenantOrDefault(in.TenantID)
	topK := s.topK(in.TopK)

	ctx, span := telemetry.StartSpan(ctx, "answer", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "answer",
	})
	defer span.End()

	log := s.logger.With(zap.String("tenant_id", tenantID))
	log.Info("processing query", zap.String("query", preview(query, 100)), zap.Int("top_k", topK))

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		metrics.Questions.WithLabelValues("error").Inc()
		span.SetError(err)
		return nil, err
	}

	chunks, err := s.index.Query(ctx, vector, topK, domain.RecordFilter{TenantID: tenantID})
	if err != nil {
		metrics.Questions.WithLabelValues("error").Inc()
		span.SetError(err)
		return nil, err
	}
	if len(chunks) == 0 {
		metrics.Questions.WithLabelValues("no_context").Inc()
		return nil, domain.ErrNoRelevantContent
	}
	log.Info("retrieved chunks", zap.Int("count", len(chunks)))

	prompt := BuildPrompt(query, BuildContext(chunks))
	text, reason := s.generate(ctx, prompt, log)
	if text == "" {
		metrics.Questions.WithLabelValues("degraded").Inc()
		return &domain.Answer{
			Sources:  chunks,
			Degraded: true,
			Reason:   reason,
		}, domain.ErrGenerationUnavailable
	}

	metrics.Questions.WithLabelValues("answered").Inc()
	return &domain.Answer{Text: text, Sources: chunks}, nil
}

func (s *AnswerService) generate(ctx context.Context, prompt domain.Prompt, log *zap.Logger) (string, string) {
	if len(s.generators) == 0 {
		log.Warn("no answer generator configured")
		return "", reasonNoGenerators
	}

	var errs []error
	for _, g := range s.generators {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		text, err := s.generateWith(ctx, g, prompt)
		if err == nil && strings.TrimSpace(text) != "" {
			log.Info("answer generated", zap.String("model", g.Name()))
			return strings.TrimSpace(text), ""
		}
		if err == nil {
			err = errors.New("empty answer")
		}
		metrics.GenerationFailures.WithLabelValues(g.Name()).Inc()
		log.Warn("answer generator failed", zap.String("model", g.Name()), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", g.Name(), err))
	}

	return "", fmt.Sprintf("%s: %v", reasonAllModelsFailed, errors.Join(errs...))
}

func (s *AnswerService) generateWith(ctx context.Context, g Generator, prompt domain.Prompt) (string, error) {
	if s.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.GenerationTimeout)
		defer cancel()
	}
	return g.Generate(ctx, prompt)
}

func (s *AnswerService) topK(requested int) int {
	switch {
	case requested <= 0:
		return s.cfg.DefaultTopK
	case requested > MaxTopK:
		return MaxTopK
	default:
		return requested
	}
}

// BuildContext renders retrieved chunks as numbered, scored excerpts.
func BuildContext(chunks []domain.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[Chunk %d - Score: %.3f]:\n%s", i+1, c.Score, c.Text)
	}
	return strings.Join(parts, "\n\n")
}

func BuildPrompt(query, contextBlock string) domain.Prompt {
	return domain.Prompt{
		System: systemPrompt,
		User: "Based on these document excerpts, please answer the question:\n\n" +
			contextBlock +
			"\n\nQuestion: " + query +
			"\n\nProvide a clear, accurate answer based on the excerpts above.",
	}
}
