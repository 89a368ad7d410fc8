package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTenant_FromHeader(t *testing.T) {
	var captured string
	handler := Tenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetTenantID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TenantHeader, " owner-42 ")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner-42", captured)
}

func TestTenant_MissingHeader(t *testing.T) {
	called := false
	handler := Tenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Empty(t, GetTenantID(r.Context()))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
}

func TestGetTenantID_ValidContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), TenantIDKey, "owner-1")
	assert.Equal(t, "owner-1", GetTenantID(ctx))
}

func TestGetTenantID_MissingContext(t *testing.T) {
	assert.Equal(t, "", GetTenantID(context.Background()))
}
