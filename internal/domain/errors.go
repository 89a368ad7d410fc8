package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the same kind of domain error. Two domain
// errors match when code and message agree, so a sentinel still matches
// after Wrap attached a cause to a copy of it.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Wrap returns a copy of the error carrying cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Err:     cause,
	}
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Ingestion errors
var (
	ErrUnsupportedFormat = NewDomainError(ErrCodeValidation, "invalid PDF file format")
	ErrExtractionFailed  = NewDomainError(ErrCodeValidation, "no text content could be extracted from the PDF")
	ErrEmptyDocument     = NewDomainError(ErrCodeValidation, "document produced no chunks")
	ErrMissingFilename   = NewDomainError(ErrCodeValidation, "filename is required")
	ErrInvalidChunking   = NewDomainError(ErrCodeValidation, "chunk size must be greater than overlap and overlap must not be negative")
)

// Backend errors
var (
	ErrEmbeddingFailed  = NewDomainError(ErrCodeUpstream, "failed to generate embeddings")
	ErrIndexUnavailable = NewDomainError(ErrCodeUpstream, "vector index unavailable")
	ErrMissingTenant    = NewDomainError(ErrCodeValidation, "tenant id is required for vector index access")
)

// Question answering errors
var (
	ErrEmptyQuery            = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrNoRelevantContent     = NewDomainError(ErrCodeNotFound, "no relevant information found, please upload a PDF first")
	ErrGenerationUnavailable = NewDomainError(ErrCodeUnavailable, "AI service unavailable")
)
