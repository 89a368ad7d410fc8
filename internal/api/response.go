package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/pawdocs/internal/domain"
)

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ErrorWithDetails writes an error JSON response carrying the underlying cause.
func ErrorWithDetails(w http.ResponseWriter, status int, message, details string) {
	JSON(w, status, ErrorResponse{Error: message, Details: details})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case domain.ErrCodeUpstream, domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type.
// Client errors carry the domain message. Server errors carry the full
// cause only when debug is set.
func HandleError(w http.ResponseWriter, err error, debug bool) {
	status := DomainErrorToHTTP(err)

	message := err.Error()
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}

	if status < http.StatusInternalServerError {
		Error(w, status, message)
		return
	}
	if debug {
		ErrorWithDetails(w, status, message, err.Error())
		return
	}
	Error(w, status, message)
}
