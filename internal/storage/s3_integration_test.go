//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/cloo-solutions/pawdocs/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Client_Integration(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)
	defer rc.Terminate(ctx)

	c, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.S3AccessKey,
		SecretAccessKey: testutil.S3SecretKey,
		Bucket:          "pawdocs-test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, c.EnsureBucket(ctx))

	data := []byte("%PDF-1.4 archived")
	require.NoError(t, c.Store(ctx, "t1", "a.pdf", data))
	require.NoError(t, c.Store(ctx, "t1", "b.pdf", data))
	require.NoError(t, c.Store(ctx, "t2", "a.pdf", data))
	require.NoError(t, c.Store(ctx, "t1/sub", "c.pdf", data))

	meta, err := c.HeadObject(ctx, ObjectKey("t1", "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), meta.ContentLength)

	require.NoError(t, c.Remove(ctx, domain.RecordFilter{TenantID: "t1", Filename: "a.pdf"}))
	_, err = c.HeadObject(ctx, ObjectKey("t1", "a.pdf"))
	assert.Error(t, err)

	require.NoError(t, c.Remove(ctx, domain.RecordFilter{TenantID: "t1"}))
	_, err = c.HeadObject(ctx, ObjectKey("t1", "b.pdf"))
	assert.Error(t, err)

	_, err = c.HeadObject(ctx, ObjectKey("t2", "a.pdf"))
	assert.NoError(t, err)

	_, err = c.HeadObject(ctx, ObjectKey("t1/sub", "c.pdf"))
	assert.NoError(t, err)
}
