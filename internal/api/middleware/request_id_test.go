package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"caller id kept", "req-123", true},
		{"caller id with trace separators kept", "trace.abc:01_x", true},
		{"header injection replaced", "abc\r\nX-Evil: 1", false},
		{"spaces replaced", "upload pdf", false},
		{"oversized replaced", strings.Repeat("a", 129), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header[RequestIDHeader] = []string{tt.incoming}
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.NotEmpty(t, captured)
			assert.Equal(t, captured, w.Header().Get(RequestIDHeader))
			if tt.keep {
				assert.Equal(t, tt.incoming, captured)
			} else {
				assert.NotEqual(t, tt.incoming, captured)
			}
		})
	}
}
