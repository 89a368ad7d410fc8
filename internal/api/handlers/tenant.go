package handlers

import (
	"net/http"
	"strings"

	"github.com/cloo-solutions/pawdocs/internal/api/middleware"
	"github.com/cloo-solutions/pawdocs/internal/domain"
)

// resolveTenant prefers the tenant set by the gateway header, then the
// first non-blank candidate from the request itself.
func resolveTenant(r *http.Request, candidates ...string) string {
	if tenantID := middleware.GetTenantID(r.Context()); tenantID != "" {
		return tenantID
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return domain.DefaultTenantID
}
