package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "default/care.pdf", ObjectKey("default", "care.pdf"))
	assert.Equal(t, "clinic-7/care.pdf", ObjectKey("clinic-7", "care.pdf"))
}

func TestObjectKey_SlashTenantStaysOutOfParentPrefix(t *testing.T) {
	key := ObjectKey("a/b", "x.pdf")

	assert.Equal(t, "a%2Fb/x.pdf", key)
	assert.False(t, strings.HasPrefix(key, tenantPrefix("a")))
	assert.NotEqual(t, ObjectKey("a", "b/x.pdf"), key)
	assert.Equal(t, "a%2F/care.pdf", ObjectKey("a/", "care.pdf"))
}

func TestRemove_RequiresTenant(t *testing.T) {
	c, err := NewS3Client(context.Background(), S3ClientConfig{
		Endpoint:        "http://127.0.0.1:1",
		Region:          "us-east-1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "docs",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	err = c.Remove(context.Background(), domain.RecordFilter{Filename: "a.pdf"})

	assert.ErrorIs(t, err, domain.ErrMissingTenant)
}
