// Package extract turns uploaded PDF bytes into plain text.
package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/cloo-solutions/pawdocs/internal/logging"
	"github.com/cloo-solutions/pawdocs/internal/metrics"
	"go.uber.org/zap"
)

var pdfSignature = []byte("%PDF")

// Strategy is one way of pulling the text layer out of a document.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, data []byte) (string, error)
}

type Extractor struct {
	strategies []Strategy
	logger     *zap.Logger
}

// New returns an extractor that tries strategies in order. With no
// strategies given it uses DefaultStrategies.
func New(logger *zap.Logger, strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Extractor{
		strategies: strategies,
		logger:     logging.OrNop(logger),
	}
}

// ValidateSignature reports ErrUnsupportedFormat unless data starts with %PDF.
func ValidateSignature(data []byte) error {
	if !bytes.HasPrefix(data, pdfSignature) {
		return domain.ErrUnsupportedFormat
	}
	return nil
}

// Extract returns the first non-blank text produced by a strategy.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ValidateSignature(data); err != nil {
		return "", err
	}

	var lastErr error
	for _, s := range e.strategies {
		if err := ctx.Err(); err != nil {
			return "", domain.ErrExtractionFailed.Wrap(err)
		}

		text, err := s.Extract(ctx, data)
		if err != nil {
			lastErr = err
			metrics.ExtractionStrategyFailures.WithLabelValues(s.Name()).Inc()
			e.logger.Warn("extraction strategy failed",
				zap.String("strategy", s.Name()),
				zap.Error(err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			metrics.ExtractionStrategyFailures.WithLabelValues(s.Name()).Inc()
			e.logger.Debug("extraction strategy returned no text", zap.String("strategy", s.Name()))
			continue
		}

		e.logger.Debug("text extracted",
			zap.String("strategy", s.Name()),
			zap.Int("length", len(text)))
		return text, nil
	}

	if lastErr != nil {
		return "", domain.ErrExtractionFailed.Wrap(lastErr)
	}
	return "", domain.ErrExtractionFailed
}
