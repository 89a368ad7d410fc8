// Package embedding turns text into fixed-dimension vectors for the index.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/cloo-solutions/pawdocs/internal/logging"
	"github.com/cloo-solutions/pawdocs/internal/metrics"
	"go.uber.org/zap"
)

// Model is a pre-trained text embedding model.
type Model interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Loader constructs a Model. It is called lazily and may be slow.
type Loader func(ctx context.Context) (Model, error)

type Config struct {
	TargetDimension int
	Timeout         time.Duration
}

// Embedder loads a Model once and resizes its output to the target dimension.
type Embedder struct {
	mu     sync.Mutex
	loader Loader
	model  Model

	target  int
	timeout time.Duration
	logger  *zap.Logger
}

func New(loader Loader, cfg Config, logger *zap.Logger) *Embedder {
	if cfg.TargetDimension <= 0 {
		cfg.TargetDimension = domain.DefaultTargetDimension
	}
	return &Embedder{
		loader:  loader,
		target:  cfg.TargetDimension,
		timeout: cfg.Timeout,
		logger:  logging.OrNop(logger),
	}
}

// NewWithModel wraps an already constructed model.
func NewWithModel(model Model, cfg Config, logger *zap.Logger) *Embedder {
	return New(func(context.Context) (Model, error) { return model, nil }, cfg, logger)
}

func (e *Embedder) Dimension() int {
	return e.target
}

// EnsureLoaded loads the model if it is not loaded yet. A failed load is
// retried by the next call.
func (e *Embedder) EnsureLoaded(ctx context.Context) error {
	_, err := e.loadedModel(ctx)
	return err
}

func (e *Embedder) loadedModel(ctx context.Context) (Model, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model != nil {
		return e.model, nil
	}
	if e.loader == nil {
		return nil, domain.ErrEmbeddingFailed.Wrap(errors.New("no embedding model configured"))
	}

	start := time.Now()
	m, err := e.loader(ctx)
	if err != nil {
		e.logger.Error("embedding model load failed", zap.Error(err))
		return nil, domain.ErrEmbeddingFailed.Wrap(fmt.Errorf("load model: %w", err))
	}
	e.model = m
	e.logger.Info("embedding model loaded", zap.Duration("took", time.Since(start)))
	return m, nil
}

// Embed returns the vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m, err := e.loadedModel(ctx)
	if err != nil {
		return nil, err
	}
	return e.embedOne(ctx, m, text)
}

func (e *Embedder) embedOne(ctx context.Context, m Model, text string) ([]float32, error) {
	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	start := time.Now()
	v, err := m.Embed(callCtx, text)
	metrics.EmbeddingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, domain.ErrEmbeddingFailed.Wrap(err)
	}
	return Resize(v, e.target), nil
}

// EmbedBatch returns one vector per text, in input order. When the model's
// batch call fails or returns the wrong count it embeds the texts one by one.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	m, err := e.loadedModel(ctx)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := e.callContext(ctx)
	start := time.Now()
	vecs, err := m.EmbedBatch(callCtx, texts)
	metrics.EmbeddingDuration.Observe(time.Since(start).Seconds())
	cancel()

	if err == nil && len(vecs) == len(texts) {
		out := make([][]float32, len(vecs))
		for i, v := range vecs {
			out[i] = Resize(v, e.target)
		}
		return out, nil
	}

	metrics.EmbeddingBatchFallbacks.Inc()
	if err != nil {
		e.logger.Warn("batch embedding failed, embedding sequentially",
			zap.Int("texts", len(texts)),
			zap.Error(err))
	} else {
		e.logger.Warn("batch embedding returned wrong count, embedding sequentially",
			zap.Int("texts", len(texts)),
			zap.Int("vectors", len(vecs)))
	}

	out := make([][]float32, 0, len(texts))
	for i, text := range texts {
		v, err := e.embedOne(ctx, m, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Close releases the model when it holds native resources.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.model.(io.Closer); ok {
		e.model = nil
		return c.Close()
	}
	return nil
}

func (e *Embedder) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

// Resize truncates v to target or pads it with zeros. The result never
// aliases v.
func Resize(v []float32, target int) []float32 {
	out := make([]float32, target)
	copy(out, v)
	return out
}
