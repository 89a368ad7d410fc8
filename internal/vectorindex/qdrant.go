package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

const maxMessageSize = 64 * 1024 * 1024

type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimension  int
}

type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrantStore connects to qdrant and creates the collection when it
// does not exist yet.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = domain.DefaultTargetDimension
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxMessageSize),
				grpc.MaxCallSendMsgSize(maxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	s := &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.ensureCollection(initCtx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.collection, err)
	}

	for _, field := range []string{keyTenantID, keyFilename} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			Wait:           qdrant.PtrOf(true),
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("indexing payload field %s: %w", field, err)
		}
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(r.StorageKey()),
			Vectors: qdrant.NewVectors(r.Values...),
			Payload: map[string]*qdrant.Value{
				keyRecordID:   qdrant.NewValueString(r.ID),
				keyTenantID:   qdrant.NewValueString(r.Metadata.TenantID),
				keyFilename:   qdrant.NewValueString(r.Metadata.Filename),
				keyText:       qdrant.NewValueString(r.Metadata.Text),
				keyChunkIndex: qdrant.NewValueInt(int64(r.Metadata.ChunkIndex)),
				keyStart:      qdrant.NewValueInt(int64(r.Metadata.Start)),
				keyEnd:        qdrant.NewValueInt(int64(r.Metadata.End)),
				keyTimestamp:  qdrant.NewValueString(r.Metadata.Timestamp.UTC().Format(time.RFC3339Nano)),
			},
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points to collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, vector []float32, topK int, filter domain.RecordFilter) ([]domain.RetrievedChunk, error) {
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         qdrantFilter(filter),
	})
	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", s.collection, err)
	}

	chunks := make([]domain.RetrievedChunk, 0, len(points))
	for _, p := range points {
		chunks = append(chunks, domain.RetrievedChunk{
			Text:       p.Payload[keyText].GetStringValue(),
			Score:      p.Score,
			Filename:   p.Payload[keyFilename].GetStringValue(),
			ChunkIndex: int(p.Payload[keyChunkIndex].GetIntegerValue()),
		})
	}
	return chunks, nil
}

func (s *QdrantStore) DeleteByFilter(ctx context.Context, filter domain.RecordFilter) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(qdrantFilter(filter)),
	})
	if err != nil {
		return fmt.Errorf("deleting points from collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *QdrantStore) Count(ctx context.Context, filter domain.RecordFilter) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         qdrantFilter(filter),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting points in collection %s: %w", s.collection, err)
	}
	return int(n), nil
}

// HealthCheck pings the qdrant server.
func (s *QdrantStore) HealthCheck(ctx context.Context) error {
	_, err := s.client.HealthCheck(ctx)
	return err
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func qdrantFilter(f domain.RecordFilter) *qdrant.Filter {
	must := []*qdrant.Condition{qdrant.NewMatch(keyTenantID, f.TenantID)}
	if f.Filename != "" {
		must = append(must, qdrant.NewMatch(keyFilename, f.Filename))
	}
	return &qdrant.Filter{Must: must}
}
