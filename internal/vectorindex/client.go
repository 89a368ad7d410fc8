// Package vectorindex stores chunk embeddings and answers similarity queries,
// always scoped to one tenant.
package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/cloo-solutions/pawdocs/internal/logging"
	"github.com/cloo-solutions/pawdocs/internal/metrics"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize = 100
	DefaultTopK      = 5
)

// Store is a vector index backend. Upsert overwrites records with the same
// id. Filters passed to a Store always carry a tenant id.
type Store interface {
	Upsert(ctx context.Context, records []domain.VectorRecord) error
	Query(ctx context.Context, vector []float32, topK int, filter domain.RecordFilter) ([]domain.RetrievedChunk, error)
	DeleteByFilter(ctx context.Context, filter domain.RecordFilter) error
	Count(ctx context.Context, filter domain.RecordFilter) (int, error)
}

// UpsertError reports an upsert that stopped part way. Records in batches
// before the failing one are stored.
type UpsertError struct {
	Stored int
	Err    error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upsert aborted after %d stored records: %v", e.Stored, e.Err)
}

func (e *UpsertError) Unwrap() error {
	return e.Err
}

type Config struct {
	BatchSize int
	Timeout   time.Duration
}

type Client struct {
	store     Store
	batchSize int
	timeout   time.Duration
	logger    *zap.Logger
}

func NewClient(store Store, cfg Config, logger *zap.Logger) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Client{
		store:     store,
		batchSize: cfg.BatchSize,
		timeout:   cfg.Timeout,
		logger:    logging.OrNop(logger),
	}
}

// Upsert writes records in sequential batches and returns how many were
// stored. The first failing batch aborts the rest.
func (c *Client) Upsert(ctx context.Context, records []domain.VectorRecord) (int, error) {
	for _, r := range records {
		if err := (domain.RecordFilter{TenantID: r.Metadata.TenantID}).Validate(); err != nil {
			return 0, err
		}
	}

	stored := 0
	for start := 0; start < len(records); start += c.batchSize {
		end := min(start+c.batchSize, len(records))
		batch := records[start:end]

		callCtx, cancel := c.callContext(ctx)
		err := c.store.Upsert(callCtx, batch)
		cancel()
		if err != nil {
			metrics.UpsertBatches.WithLabelValues("error").Inc()
			c.logger.Error("upsert batch failed",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Int("stored", stored),
				zap.Error(err))
			return stored, &UpsertError{Stored: stored, Err: domain.ErrIndexUnavailable.Wrap(err)}
		}

		metrics.UpsertBatches.WithLabelValues("success").Inc()
		stored += len(batch)
		c.logger.Debug("upsert batch stored",
			zap.Int("batch_size", len(batch)),
			zap.Int("stored", stored),
			zap.Int("total", len(records)))
	}
	return stored, nil
}

// Query returns up to topK chunks of the filter's tenant, best match first.
func (c *Client) Query(ctx context.Context, vector []float32, topK int, filter domain.RecordFilter) ([]domain.RetrievedChunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	chunks, err := c.store.Query(callCtx, vector, topK, filter)
	if err != nil {
		return nil, domain.ErrIndexUnavailable.Wrap(err)
	}
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks, nil
}

// DeleteByFilter removes every record of the tenant, or of one document
// when the filter names a filename.
func (c *Client) DeleteByFilter(ctx context.Context, filter domain.RecordFilter) error {
	if err := filter.Validate(); err != nil {
		return err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if err := c.store.DeleteByFilter(callCtx, filter); err != nil {
		return domain.ErrIndexUnavailable.Wrap(err)
	}
	return nil
}

func (c *Client) Stats(ctx context.Context, tenantID string) (*domain.IndexStats, error) {
	filter := domain.RecordFilter{TenantID: tenantID}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	n, err := c.store.Count(callCtx, filter)
	if err != nil {
		return nil, domain.ErrIndexUnavailable.Wrap(err)
	}
	return &domain.IndexStats{TenantID: tenantID, TotalVectors: n}, nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}
