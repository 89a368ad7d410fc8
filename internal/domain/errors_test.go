package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrCodeValidation, "bad input")
	assert.Equal(t, "[VALIDATION_ERROR] bad input", err.Error())

	withCause := NewDomainErrorWithCause(ErrCodeUpstream, "model down", errors.New("timeout"))
	assert.Equal(t, "[UPSTREAM_ERROR] model down: timeout", withCause.Error())
}

func TestDomainError_WrapKeepsIdentity(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrIndexUnavailable.Wrap(cause)

	assert.ErrorIs(t, err, ErrIndexUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrEmbeddingFailed)
	assert.Nil(t, ErrIndexUnavailable.Err)
}

func TestDomainError_IsThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("ingest: %w", ErrEmbeddingFailed.Wrap(errors.New("boom")))

	assert.ErrorIs(t, err, ErrEmbeddingFailed)

	var domainErr *DomainError
	assert.True(t, errors.As(err, &domainErr))
	assert.Equal(t, ErrCodeUpstream, domainErr.Code)
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *DomainError
		code string
	}{
		{"UnsupportedFormat", ErrUnsupportedFormat, ErrCodeValidation},
		{"ExtractionFailed", ErrExtractionFailed, ErrCodeValidation},
		{"EmptyDocument", ErrEmptyDocument, ErrCodeValidation},
		{"EmbeddingFailed", ErrEmbeddingFailed, ErrCodeUpstream},
		{"IndexUnavailable", ErrIndexUnavailable, ErrCodeUpstream},
		{"EmptyQuery", ErrEmptyQuery, ErrCodeValidation},
		{"NoRelevantContent", ErrNoRelevantContent, ErrCodeNotFound},
		{"GenerationUnavailable", ErrGenerationUnavailable, ErrCodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}
