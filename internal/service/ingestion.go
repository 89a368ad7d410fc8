package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/cloo-solutions/pawdocs/internal/extract"
	"github.com/cloo-solutions/pawdocs/internal/logging"
	"github.com/cloo-solutions/pawdocs/internal/metrics"
	"github.com/cloo-solutions/pawdocs/internal/telemetry"
	"go.uber.org/zap"
)

const (
	DefaultEmbedBatchSize = 20
	uploadPreviewLength   = 200
)

type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorWriter interface {
	Upsert(ctx context.Context, records []domain.VectorRecord) (int, error)
	DeleteByFilter(ctx context.Context, filter domain.RecordFilter) error
	Stats(ctx context.Context, tenantID string) (*domain.IndexStats, error)
}

// Archiver keeps a copy of ingested source documents.
type Archiver interface {
	Store(ctx context.Context, tenantID, filename string, data []byte) error
	Remove(ctx context.Context, filter domain.RecordFilter) error
}

type IngestionConfig struct {
	Chunking       ChunkConfig
	EmbedBatchSize int
}

type IngestInput struct {
	Data     []byte
	Filename string
	TenantID string
}

// IngestionService turns an uploaded PDF into indexed chunk vectors.
type IngestionService struct {
	extractor TextExtractor
	embedder  BatchEmbedder
	index     VectorWriter
	archiver  Archiver
	cfg       IngestionConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewIngestionService(extractor TextExtractor, embedder BatchEmbedder, index VectorWriter, cfg IngestionConfig, logger *zap.Logger) *IngestionService {
	if cfg.Chunking == (ChunkConfig{}) {
		cfg.Chunking = DefaultChunkConfig()
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultEmbedBatchSize
	}
	return &IngestionService{
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		cfg:       cfg,
		logger:    logging.OrNop(logger),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithArchiver enables best-effort archiving of ingested documents.
func (s *IngestionService) WithArchiver(a Archiver) *IngestionService {
	s.archiver = a
	return s
}

// Ingest extracts, chunks, embeds and indexes one document. Nothing is
// written to the index unless every chunk was embedded.
func (s *IngestionService) Ingest(ctx context.Context, in IngestInput) (*domain.IngestResult, error) {
	if strings.TrimSpace(in.Filename) == "" {
		return nil, domain.ErrMissingFilename
	}
	tenantID := tenantOrDefault(in.TenantID)

	ctx, span := telemetry.StartSpan(ctx, "ingest", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Filename:  in.Filename,
		Operation: "ingest",
	})
	defer span.End()

	result, err := s.ingest(ctx, tenantID, in)
	if err != nil {
		metrics.DocumentsIngested.WithLabelValues("error").Inc()
		span.SetError(err)
		return nil, err
	}
	metrics.DocumentsIngested.WithLabelValues("success").Inc()
	metrics.ChunksIndexed.Add(float64(result.VectorCount))
	return result, nil
}

func (s *IngestionService) ingest(ctx context.Context, tenantID string, in IngestInput) (*domain.IngestResult, error) {
	log := s.logger.With(zap.String("tenant_id", tenantID), zap.String("filename", in.Filename))

	if err := extract.ValidateSignature(in.Data); err != nil {
		return nil, err
	}

	text, err := s.extractor.Extract(ctx, in.Data)
	if err != nil {
		return nil, err
	}
	log.Info("text extracted", zap.Int("length", utf8.RuneCountInString(text)))

	chunks, err := ChunkText(text, s.cfg.Chunking)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	telemetry.AddBreadcrumb(ctx, "ingest", "chunked document")

	records, err := s.embedChunks(ctx, tenantID, in.Filename, chunks)
	if err != nil {
		return nil, err
	}

	stored, err := s.index.Upsert(ctx, records)
	if err != nil {
		log.Error("index upsert failed", zap.Int("stored", stored), zap.Error(err))
		return nil, err
	}
	log.Info("document indexed", zap.Int("chunks", len(chunks)), zap.Int("vectors", stored))

	if s.archiver != nil {
		if err := s.archiver.Store(ctx, tenantID, in.Filename, in.Data); err != nil {
			log.Warn("document archive failed", zap.Error(err))
			telemetry.CaptureError(ctx, fmt.Errorf("archive %s: %w", in.Filename, err))
		}
	}

	return &domain.IngestResult{
		Filename:    in.Filename,
		TextLength:  utf8.RuneCountInString(text),
		ChunkCount:  len(chunks),
		VectorCount: stored,
		Preview:     preview(strings.TrimSpace(text), uploadPreviewLength),
	}, nil
}

// embedChunks embeds chunks in sequential batches and builds their records.
func (s *IngestionService) embedChunks(ctx context.Context, tenantID, filename string, chunks []domain.Chunk) ([]domain.VectorRecord, error) {
	ts := s.now()
	records := make([]domain.VectorRecord, 0, len(chunks))

	for start := 0; start < len(chunks); start += s.cfg.EmbedBatchSize {
		end := min(start+s.cfg.EmbedBatchSize, len(chunks))

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		vecs, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(texts) {
			return nil, domain.ErrEmbeddingFailed.Wrap(fmt.Errorf("got %d vectors for %d chunks", len(vecs), len(texts)))
		}
		for i, v := range vecs {
			idx := start + i
			records = append(records, domain.NewVectorRecord(tenantID, filename, idx, chunks[idx], v, ts))
		}
	}
	return records, nil
}

// Delete removes a tenant's document, or all of the tenant's documents when
// filename is empty.
func (s *IngestionService) Delete(ctx context.Context, tenantID, filename string) error {
	filter := domain.RecordFilter{TenantID: tenantOrDefault(tenantID), Filename: filename}

	if err := s.index.DeleteByFilter(ctx, filter); err != nil {
		return err
	}
	s.logger.Info("documents deleted",
		zap.String("tenant_id", filter.TenantID),
		zap.String("filename", filter.Filename))

	if s.archiver != nil {
		if err := s.archiver.Remove(ctx, filter); err != nil {
			s.logger.Warn("document archive removal failed", zap.Error(err))
			telemetry.CaptureError(ctx, fmt.Errorf("archive removal: %w", err))
		}
	}
	return nil
}

func (s *IngestionService) Stats(ctx context.Context, tenantID string) (*domain.IndexStats, error) {
	return s.index.Stats(ctx, tenantOrDefault(tenantID))
}

func tenantOrDefault(tenantID string) string {
	if t := strings.TrimSpace(tenantID); t != "" {
		return t
	}
	return domain.DefaultTenantID
}

// preview returns the first n runes of s, with "..." appended when s was cut.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
