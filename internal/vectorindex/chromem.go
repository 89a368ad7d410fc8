package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/philippgille/chromem-go"
)

const DefaultCollection = "medical_documents"

var errNoEmbeddingFunc = errors.New("chromem store only accepts precomputed embeddings")

// ChromemStore is an in-process index. Its contents live as long as the
// process.
type ChromemStore struct {
	collection *chromem.Collection
	dimension  int
}

func NewChromemStore(collection string, dimension int) (*ChromemStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	if dimension <= 0 {
		dimension = domain.DefaultTargetDimension
	}

	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collection, nil, func(context.Context, string) ([]float32, error) {
		return nil, errNoEmbeddingFunc
	})
	if err != nil {
		return nil, fmt.Errorf("creating chromem collection %s: %w", collection, err)
	}

	return &ChromemStore{collection: col, dimension: dimension}, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		if len(r.Values) != s.dimension {
			return fmt.Errorf("record %s has %d dimensions, index expects %d", r.ID, len(r.Values), s.dimension)
		}
		docs[i] = chromem.Document{
			ID:        r.StorageKey(),
			Metadata:  stringMetadata(r.ID, r.Metadata),
			Embedding: r.Values,
			Content:   r.Metadata.Text,
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	return nil
}

func (s *ChromemStore) Query(ctx context.Context, vector []float32, topK int, filter domain.RecordFilter) ([]domain.RetrievedChunk, error) {
	total := s.collection.Count()
	if total == 0 {
		return nil, nil
	}
	// chromem rejects nResults above the collection size, before filtering.
	n := min(topK, total)

	results, err := s.collection.QueryEmbedding(ctx, vector, n, filterMap(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	chunks := make([]domain.RetrievedChunk, 0, len(results))
	for _, res := range results {
		idx, _ := strconv.Atoi(res.Metadata[keyChunkIndex])
		chunks = append(chunks, domain.RetrievedChunk{
			Text:       res.Content,
			Score:      res.Similarity,
			Filename:   res.Metadata[keyFilename],
			ChunkIndex: idx,
		})
	}
	return chunks, nil
}

func (s *ChromemStore) DeleteByFilter(ctx context.Context, filter domain.RecordFilter) error {
	return s.collection.Delete(ctx, filterMap(filter), nil)
}

// Count runs an exhaustive filtered query, chromem has no filtered count.
func (s *ChromemStore) Count(ctx context.Context, filter domain.RecordFilter) (int, error) {
	total := s.collection.Count()
	if total == 0 {
		return 0, nil
	}

	allOnes := make([]float32, s.dimension)
	for i := range allOnes {
		allOnes[i] = 1
	}
	results, err := s.collection.QueryEmbedding(ctx, allOnes, total, filterMap(filter), nil)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return len(results), nil
}
