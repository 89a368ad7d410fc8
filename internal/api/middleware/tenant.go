package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const TenantIDKey contextKey = "tenant_id"

// TenantHeader names the header a gateway in front of the service uses to
// pass the authenticated tenant.
const TenantHeader = "X-Tenant-ID"

// Tenant resolves the tenant from TenantHeader into the request context.
// Requests without the header fall through untouched so handlers can use
// the tenant named in the body or fall back to the default tenant.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := strings.TrimSpace(r.Header.Get(TenantHeader))
		if tenantID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), TenantIDKey, tenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetTenantID(ctx context.Context) string {
	tenantID, _ := ctx.Value(TenantIDKey).(string)
	return tenantID
}
