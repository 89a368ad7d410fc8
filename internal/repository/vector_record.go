package repository

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// VectorRecordRepository is the Postgres backend of the vector index.
type VectorRecordRepository struct {
	db dbtx
}

func NewVectorRecordRepository(pool *pgxpool.Pool) *VectorRecordRepository {
	return &VectorRecordRepository{db: pool}
}

// Upsert sends all records in one batch. A record for an existing
// (tenant, filename, chunk index) replaces the stored row.
func (r *VectorRecordRepository) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		m := rec.Metadata
		batch.Queue(
			`INSERT INTO vector_records
				(id, tenant_id, filename, chunk_index, start_offset, end_offset, text, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (tenant_id, filename, chunk_index) DO UPDATE SET
				id = EXCLUDED.id,
				start_offset = EXCLUDED.start_offset,
				end_offset = EXCLUDED.end_offset,
				text = EXCLUDED.text,
				embedding = EXCLUDED.embedding,
				created_at = EXCLUDED.created_at`,
			rec.ID, m.TenantID, m.Filename, m.ChunkIndex, m.Start, m.End, m.Text,
			pgvector.NewVector(rec.Values), m.Timestamp,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	for i := range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upsert record %s: %w", records[i].ID, err)
		}
	}
	return br.Close()
}

// Query ranks the tenant's records by cosine similarity.
func (r *VectorRecordRepository) Query(ctx context.Context, vector []float32, topK int, filter domain.RecordFilter) ([]domain.RetrievedChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT text, filename, chunk_index, 1 - (embedding <=> $1) AS score
		 FROM vector_records
		 WHERE tenant_id = $2 AND ($3::text IS NULL OR filename = $3)
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		pgvector.NewVector(vector), filter.TenantID, nullableString(filter.Filename), topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.RetrievedChunk
	for rows.Next() {
		var c domain.RetrievedChunk
		var score float64
		if err := rows.Scan(&c.Text, &c.Filename, &c.ChunkIndex, &score); err != nil {
			return nil, err
		}
		c.Score = float32(score)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *VectorRecordRepository) DeleteByFilter(ctx context.Context, filter domain.RecordFilter) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM vector_records WHERE tenant_id = $1 AND ($2::text IS NULL OR filename = $2)`,
		filter.TenantID, nullableString(filter.Filename),
	)
	return err
}

func (r *VectorRecordRepository) Count(ctx context.Context, filter domain.RecordFilter) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM vector_records WHERE tenant_id = $1 AND ($2::text IS NULL OR filename = $2)`,
		filter.TenantID, nullableString(filter.Filename),
	).Scan(&n)
	return n, err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
