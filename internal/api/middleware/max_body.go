package middleware

import (
	"fmt"
	"net/http"

	"github.com/cloo-solutions/pawdocs/internal/api"
)

// MaxBodyBytes caps JSON request bodies. Declared oversize bodies are
// rejected up front with 413; bodies of unknown length fail on read.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	message := fmt.Sprintf("request body exceeds the %d byte limit", limit)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, message)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
