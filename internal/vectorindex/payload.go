package vectorindex

import (
	"strconv"
	"time"

	"github.com/cloo-solutions/pawdocs/internal/domain"
)

// Metadata keys shared by the backends.
const (
	keyRecordID   = "record_id"
	keyTenantID   = "tenant_id"
	keyFilename   = "filename"
	keyText       = "text"
	keyChunkIndex = "chunk_index"
	keyStart      = "start"
	keyEnd        = "end"
	keyTimestamp  = "timestamp"
)

// stringMetadata flattens metadata for backends that only store strings.
func stringMetadata(id string, m domain.RecordMetadata) map[string]string {
	return map[string]string{
		keyRecordID:   id,
		keyTenantID:   m.TenantID,
		keyFilename:   m.Filename,
		keyChunkIndex: strconv.Itoa(m.ChunkIndex),
		keyStart:      strconv.Itoa(m.Start),
		keyEnd:        strconv.Itoa(m.End),
		keyTimestamp:  m.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func filterMap(f domain.RecordFilter) map[string]string {
	where := map[string]string{keyTenantID: f.TenantID}
	if f.Filename != "" {
		where[keyFilename] = f.Filename
	}
	return where
}
