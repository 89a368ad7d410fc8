package testutil

import (
	"time"

	"github.com/cloo-solutions/pawdocs/internal/domain"
)

// AxisVector returns a dim-long vector pointing mostly along axis. Every
// component is non-zero so cosine similarity is always defined.
func AxisVector(dim, axis int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = 0.01
	}
	v[axis%dim] = 1
	return v
}

// Record builds a vector record for chunk i of a document.
func Record(tenantID, filename string, i int, text string, values []float32) domain.VectorRecord {
	chunk := domain.Chunk{Text: text, Start: i * 800, End: i*800 + len([]rune(text))}
	return domain.NewVectorRecord(tenantID, filename, i, chunk, values, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}
