package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/cloo-solutions/pawdocs/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockStore) Query(ctx context.Context, vector []float32, topK int, filter domain.RecordFilter) ([]domain.RetrievedChunk, error) {
	args := m.Called(ctx, vector, topK, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedChunk), args.Error(1)
}

func (m *MockStore) DeleteByFilter(ctx context.Context, filter domain.RecordFilter) error {
	args := m.Called(ctx, filter)
	return args.Error(0)
}

func (m *MockStore) Count(ctx context.Context, filter domain.RecordFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func records(n int, tenant string) []domain.VectorRecord {
	out := make([]domain.VectorRecord, n)
	for i := range out {
		out[i] = testutil.Record(tenant, "care.pdf", i, fmt.Sprintf("chunk %d", i), testutil.AxisVector(4, i))
	}
	return out
}

func batchOfSize(n int) interface{} {
	return mock.MatchedBy(func(r []domain.VectorRecord) bool { return len(r) == n })
}

func TestClient_Upsert_Batches(t *testing.T) {
	store := new(MockStore)
	store.On("Upsert", mock.Anything, batchOfSize(100)).Return(nil).Twice()
	store.On("Upsert", mock.Anything, batchOfSize(50)).Return(nil).Once()
	client := NewClient(store, Config{}, nil)

	stored, err := client.Upsert(context.Background(), records(250, "t1"))

	require.NoError(t, err)
	assert.Equal(t, 250, stored)
	store.AssertExpectations(t)
}

func TestClient_Upsert_PreservesOrderAcrossBatches(t *testing.T) {
	var seen []string
	store := new(MockStore)
	store.On("Upsert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		for _, r := range args.Get(1).([]domain.VectorRecord) {
			seen = append(seen, r.ID)
		}
	}).Return(nil)
	client := NewClient(store, Config{BatchSize: 3}, nil)

	recs := records(7, "t1")
	_, err := client.Upsert(context.Background(), recs)

	require.NoError(t, err)
	require.Len(t, seen, 7)
	for i, r := range recs {
		assert.Equal(t, r.ID, seen[i])
	}
	store.AssertNumberOfCalls(t, "Upsert", 3)
}

func TestClient_Upsert_FailureAbortsRemainingBatches(t *testing.T) {
	cause := errors.New("connection reset")
	store := new(MockStore)
	store.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()
	store.On("Upsert", mock.Anything, mock.Anything).Return(cause).Once()
	client := NewClient(store, Config{BatchSize: 100}, nil)

	stored, err := client.Upsert(context.Background(), records(250, "t1"))

	assert.Equal(t, 100, stored)
	var upsertErr *UpsertError
	require.ErrorAs(t, err, &upsertErr)
	assert.Equal(t, 100, upsertErr.Stored)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	assert.ErrorIs(t, err, cause)
	store.AssertNumberOfCalls(t, "Upsert", 2)
}

func TestClient_Upsert_RejectsMissingTenant(t *testing.T) {
	store := new(MockStore)
	client := NewClient(store, Config{}, nil)

	_, err := client.Upsert(context.Background(), records(2, ""))

	assert.ErrorIs(t, err, domain.ErrMissingTenant)
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestClient_Upsert_Empty(t *testing.T) {
	store := new(MockStore)
	client := NewClient(store, Config{}, nil)

	stored, err := client.Upsert(context.Background(), nil)

	require.NoError(t, err)
	assert.Zero(t, stored)
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestClient_Upsert_PerBatchTimeout(t *testing.T) {
	store := new(MockStore)
	store.On("Upsert", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return(nil)
	client := NewClient(store, Config{Timeout: time.Second}, nil)

	_, err := client.Upsert(context.Background(), records(1, "t1"))

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestClient_Query(t *testing.T) {
	store := new(MockStore)
	filter := domain.RecordFilter{TenantID: "t1"}
	want := []domain.RetrievedChunk{{Text: "a", Score: 0.9}, {Text: "b", Score: 0.8}}
	store.On("Query", mock.Anything, []float32{1, 0}, 5, filter).Return(want, nil)
	client := NewClient(store, Config{}, nil)

	got, err := client.Query(context.Background(), []float32{1, 0}, 0, filter)

	require.NoError(t, err)
	assert.Equal(t, want, got)
	store.AssertExpectations(t)
}

func TestClient_Query_RequiresTenant(t *testing.T) {
	store := new(MockStore)
	client := NewClient(store, Config{}, nil)

	_, err := client.Query(context.Background(), []float32{1}, 5, domain.RecordFilter{})

	assert.ErrorIs(t, err, domain.ErrMissingTenant)
	store.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClient_Query_StoreError(t *testing.T) {
	store := new(MockStore)
	store.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("unavailable"))
	client := NewClient(store, Config{}, nil)

	_, err := client.Query(context.Background(), []float32{1}, 5, domain.RecordFilter{TenantID: "t1"})

	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestClient_DeleteByFilter(t *testing.T) {
	store := new(MockStore)
	filter := domain.RecordFilter{TenantID: "t1", Filename: "care.pdf"}
	store.On("DeleteByFilter", mock.Anything, filter).Return(nil)
	client := NewClient(store, Config{}, nil)

	require.NoError(t, client.DeleteByFilter(context.Background(), filter))
	assert.ErrorIs(t, client.DeleteByFilter(context.Background(), domain.RecordFilter{Filename: "x"}), domain.ErrMissingTenant)
	store.AssertNumberOfCalls(t, "DeleteByFilter", 1)
}

func TestClient_Stats(t *testing.T) {
	store := new(MockStore)
	store.On("Count", mock.Anything, domain.RecordFilter{TenantID: "t1"}).Return(42, nil)
	client := NewClient(store, Config{}, nil)

	stats, err := client.Stats(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, &domain.IndexStats{TenantID: "t1", TotalVectors: 42}, stats)
}
