package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRecordID(t *testing.T) {
	tests := []struct {
		name     string
		tenant   string
		filename string
		index    int
		expected string
	}{
		{"Default tenant", "default", "report.pdf", 0, "default_report.pdf_chunk_0"},
		{"Named tenant", "clinic-7", "rex vaccination.pdf", 12, "clinic-7_rex vaccination.pdf_chunk_12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MakeRecordID(tt.tenant, tt.filename, tt.index))
		})
	}
}

func TestMakeRecordID_Deterministic(t *testing.T) {
	assert.Equal(t, MakeRecordID("t1", "a.pdf", 3), MakeRecordID("t1", "a.pdf", 3))
	assert.NotEqual(t, MakeRecordID("t1", "a.pdf", 3), MakeRecordID("t2", "a.pdf", 3))
	assert.NotEqual(t, MakeRecordID("t1", "a.pdf", 3), MakeRecordID("t1", "a.pdf", 4))
}

func TestStorageKey_SeparatorCollision(t *testing.T) {
	// Both tuples render as "a_b_c.pdf_chunk_0".
	require.Equal(t, MakeRecordID("a_b", "c.pdf", 0), MakeRecordID("a", "b_c.pdf", 0))

	assert.NotEqual(t, StorageKey("a_b", "c.pdf", 0), StorageKey("a", "b_c.pdf", 0))
	assert.NotEqual(t, StorageKey("t1", "a.pdf1", 2), StorageKey("t1", "a.pdf", 12))
	assert.NotEqual(t, StorageKey("clinic-a", "luna.pdf", 0), StorageKey("clinic-b", "luna.pdf", 0))
}

func TestStorageKey_Deterministic(t *testing.T) {
	rec := NewVectorRecord("t1", "a.pdf", 3, Chunk{Text: "x"}, nil, time.Time{})

	assert.Equal(t, StorageKey("t1", "a.pdf", 3), rec.StorageKey())
	assert.Equal(t, rec.StorageKey(), NewVectorRecord("t1", "a.pdf", 3, Chunk{Text: "y"}, nil, time.Now()).StorageKey())
	assert.NotEqual(t, rec.StorageKey(), StorageKey("t1", "a.pdf", 4))
}

func TestNewVectorRecord(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	chunk := Chunk{Text: "Dogs need yearly boosters.", Start: 800, End: 1800}
	values := []float32{0.1, 0.2}

	rec := NewVectorRecord("t1", "vet.pdf", 1, chunk, values, ts)

	assert.Equal(t, "t1_vet.pdf_chunk_1", rec.ID)
	assert.Equal(t, values, rec.Values)
	assert.Equal(t, chunk.Text, rec.Metadata.Text)
	assert.Equal(t, "vet.pdf", rec.Metadata.Filename)
	assert.Equal(t, "t1", rec.Metadata.TenantID)
	assert.Equal(t, 1, rec.Metadata.ChunkIndex)
	assert.Equal(t, 800, rec.Metadata.Start)
	assert.Equal(t, 1800, rec.Metadata.End)
	assert.Equal(t, ts, rec.Metadata.Timestamp)
}

func TestRecordFilter_Validate(t *testing.T) {
	require.NoError(t, RecordFilter{TenantID: "t1"}.Validate())
	require.NoError(t, RecordFilter{TenantID: "t1", Filename: "a.pdf"}.Validate())

	err := RecordFilter{Filename: "a.pdf"}.Validate()
	assert.ErrorIs(t, err, ErrMissingTenant)
}
