package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTenantID scopes records when the caller does not name a tenant.
	DefaultTenantID = "default"
	// DefaultTargetDimension is the fixed dimensionality of the vector index.
	DefaultTargetDimension = 3072
)

// Chunk is a contiguous span of a document's extracted text.
// Start and End are character offsets into that text, End exclusive.
type Chunk struct {
	Text  string
	Start int
	End   int
}

// RecordMetadata is stored next to every vector in the index.
type RecordMetadata struct {
	Text       string
	Filename   string
	TenantID   string
	ChunkIndex int
	Start      int
	End        int
	Timestamp  time.Time
}

// VectorRecord is a single upsertable entry of the vector index.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata RecordMetadata
}

// MakeRecordID derives the record id for a chunk. Re-ingesting the same
// document yields the same ids, so upserts overwrite instead of duplicating.
func MakeRecordID(tenantID, filename string, chunkIndex int) string {
	return fmt.Sprintf("%s_%s_chunk_%d", tenantID, filename, chunkIndex)
}

// recordNamespace seeds StorageKey.
var recordNamespace = uuid.MustParse("7d1f6f64-5a54-4c1c-9d0e-3c64e0b1c2a7")

// StorageKey is the identity a chunk is stored under. MakeRecordID joins
// its parts with '_', which both tenant ids and filenames may contain, so
// the key is derived from a length-prefixed encoding of the tuple instead.
func StorageKey(tenantID, filename string, chunkIndex int) string {
	raw := fmt.Sprintf("%d:%s%d:%s%d", len(tenantID), tenantID, len(filename), filename, chunkIndex)
	return uuid.NewSHA1(recordNamespace, []byte(raw)).String()
}

// StorageKey returns the key the record's chunk is stored under.
func (r VectorRecord) StorageKey() string {
	return StorageKey(r.Metadata.TenantID, r.Metadata.Filename, r.Metadata.ChunkIndex)
}

// NewVectorRecord builds the record for the chunk at chunkIndex.
func NewVectorRecord(tenantID, filename string, chunkIndex int, chunk Chunk, values []float32, ts time.Time) VectorRecord {
	return VectorRecord{
		ID:     MakeRecordID(tenantID, filename, chunkIndex),
		Values: values,
		Metadata: RecordMetadata{
			Text:       chunk.Text,
			Filename:   filename,
			TenantID:   tenantID,
			ChunkIndex: chunkIndex,
			Start:      chunk.Start,
			End:        chunk.End,
			Timestamp:  ts,
		},
	}
}

// RecordFilter restricts index operations. TenantID is mandatory,
// Filename narrows to a single document when set.
type RecordFilter struct {
	TenantID string
	Filename string
}

// Validate fails closed when the tenant scope is missing.
func (f RecordFilter) Validate() error {
	if f.TenantID == "" {
		return ErrMissingTenant
	}
	return nil
}

// RetrievedChunk is a read-only projection of a similarity match.
type RetrievedChunk struct {
	Text       string
	Score      float32
	Filename   string
	ChunkIndex int
}

// Answer is the result of one question.
type Answer struct {
	Text     string
	Sources  []RetrievedChunk
	Degraded bool
	Reason   string
}

// IngestResult summarizes one ingested document.
type IngestResult struct {
	Filename    string
	TextLength  int
	ChunkCount  int
	VectorCount int
	Preview     string
}

// IndexStats describes what the index holds for a tenant.
type IndexStats struct {
	TenantID     string
	TotalVectors int
}

// Prompt is the input of an answer generator.
type Prompt struct {
	System string
	User   string
}
