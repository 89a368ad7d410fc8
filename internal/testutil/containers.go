// Package testutil starts the backing services of the integration and e2e
// suites and builds fixture records.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage = "pgvector/pgvector:0.8.1-pg18"
	rustfsImage   = "rustfs/rustfs:latest"
	qdrantImage   = "qdrant/qdrant:v1.16.2"

	pgCredential = "pawdocs"
	// S3AccessKey and S3SecretKey are the RustFS root credentials.
	S3AccessKey = "rustfsadmin"
	S3SecretKey = "rustfsadmin"
)

// startContainer runs req and returns the container with its host and the
// host port mapped to port. Failures abort the test.
func startContainer(ctx context.Context, t *testing.T, name string, req testcontainers.ContainerRequest, port nat.Port) (testcontainers.Container, string, int) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start %s container: %v", name, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get %s host: %v", name, err)
	}

	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("failed to map %s port %s: %v", name, port, err)
	}

	return container, host, mapped.Int()
}

// PostgresContainer is Postgres with the pgvector extension available.
type PostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      int
}

func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	container, host, port := startContainer(ctx, t, "postgres", testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pgCredential,
			"POSTGRES_PASSWORD": pgCredential,
			"POSTGRES_DB":       pgCredential,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(60 * time.Second),
	}, "5432/tcp")

	return &PostgresContainer{Container: container, Host: host, Port: port}
}

func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		pgCredential, pgCredential, pc.Host, pc.Port, pgCredential)
}

func (pc *PostgresContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(pc.Container)
}

// RustFSContainer is an S3 compatible object store for the document archive.
type RustFSContainer struct {
	Container testcontainers.Container
	Host      string
	Port      int
}

func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	container, host, port := startContainer(ctx, t, "rustfs", testcontainers.ContainerRequest{
		Image:        rustfsImage,
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": S3AccessKey,
			"RUSTFS_SECRET_KEY": S3SecretKey,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	}, "9000/tcp")

	return &RustFSContainer{Container: container, Host: host, Port: port}
}

func (rc *RustFSContainer) Endpoint() string {
	return fmt.Sprintf("http://%s:%d", rc.Host, rc.Port)
}

func (rc *RustFSContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(rc.Container)
}

// QdrantContainer is a qdrant server reachable over gRPC.
type QdrantContainer struct {
	Container testcontainers.Container
	Host      string
	GRPCPort  int
}

func NewQdrantContainer(ctx context.Context, t *testing.T) *QdrantContainer {
	container, host, port := startContainer(ctx, t, "qdrant", testcontainers.ContainerRequest{
		Image:        qdrantImage,
		ExposedPorts: []string{"6333/tcp", "6334/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("6334/tcp"),
			wait.ForHTTP("/readyz").WithPort("6333/tcp"),
		).WithStartupTimeout(60 * time.Second),
	}, "6334/tcp")

	return &QdrantContainer{Container: container, Host: host, GRPCPort: port}
}

func (qc *QdrantContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(qc.Container)
}

// NewTestPool connects to pc, retrying while Postgres finishes booting, and
// applies the up migrations in migrationsDir.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	var pool *pgxpool.Pool
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.New(ctx, pc.ConnectionString())
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	if err := RunMigrations(ctx, pool, migrationsDir); err != nil {
		pool.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return pool
}

// RunMigrations executes every *.up.sql file of dir in name order.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, dir string) error {
	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	if len(ups) == 0 {
		return fmt.Errorf("no migrations found in %s", dir)
	}
	sort.Strings(ups)

	for _, path := range ups {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filepath.Base(path), err)
		}
		if strings.TrimSpace(string(content)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", filepath.Base(path), err)
		}
	}

	return nil
}

// TruncateAll empties the vector table between tests.
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "TRUNCATE TABLE vector_records"); err != nil {
		return fmt.Errorf("failed to truncate vector_records: %w", err)
	}
	return nil
}
