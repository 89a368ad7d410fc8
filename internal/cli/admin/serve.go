package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/pawdocs/internal/api/handlers"
	"github.com/cloo-solutions/pawdocs/internal/config"
	"github.com/cloo-solutions/pawdocs/internal/database"
	"github.com/cloo-solutions/pawdocs/internal/embedding"
	"github.com/cloo-solutions/pawdocs/internal/extract"
	"github.com/cloo-solutions/pawdocs/internal/logging"
	"github.com/cloo-solutions/pawdocs/internal/openai"
	"github.com/cloo-solutions/pawdocs/internal/repository"
	"github.com/cloo-solutions/pawdocs/internal/server"
	"github.com/cloo-solutions/pawdocs/internal/service"
	"github.com/cloo-solutions/pawdocs/internal/storage"
	"github.com/cloo-solutions/pawdocs/internal/telemetry"
	"github.com/cloo-solutions/pawdocs/internal/vectorindex"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the pawdocs API server: document upload, question answering and index maintenance",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PAWDOCS_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup (pgvector backend)")
	cmd.Flags().String("migrations", defaultMigrationsDir, "Directory holding the SQL migrations")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	// 10% sampling in production, everything elsewhere
	sampleRate := 1.0
	if cfg.Environment == "production" {
		sampleRate = 0.1
	}
	flush := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	}, logger)
	defer flush()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	migrationsDir, _ := cmd.Flags().GetString("migrations")
	backend, err := openIndexBackend(ctx, cfg, !noMigrate, migrationsDir, logger)
	if err != nil {
		return err
	}
	defer backend.close()

	index := vectorindex.NewClient(backend.store, vectorindex.Config{
		BatchSize: cfg.UpsertBatchSize,
		Timeout:   cfg.IndexTimeout,
	}, logger)

	embedder := embedding.New(modelLoader(cfg), embedding.Config{
		TargetDimension: cfg.TargetDimension,
		Timeout:         cfg.EmbedTimeout,
	}, logger)
	defer embedder.Close()

	// Warm the model so the first upload does not pay for the download.
	// A failure here is retried on the first request.
	if err := embedder.EnsureLoaded(ctx); err != nil {
		logger.Warn("embedding model not loaded at startup", zap.String("provider", cfg.EmbeddingProvider), zap.Error(err))
	} else {
		logger.Info("embedding model loaded", zap.String("provider", cfg.EmbeddingProvider))
	}

	ingestion := service.NewIngestionService(extract.New(logger), embedder, index, service.IngestionConfig{
		Chunking:       service.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
		EmbedBatchSize: cfg.EmbedBatchSize,
	}, logger)

	if cfg.HasS3() {
		archive, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		ingestion.WithArchiver(archive)
		logger.Info("document archive enabled", zap.String("bucket", cfg.S3Bucket))
	}

	answers := service.NewAnswerService(embedder, index, generators(cfg, logger), service.AnswerConfig{
		DefaultTopK:       cfg.DefaultTopK,
		GenerationTimeout: cfg.GenerationTimeout,
	}, logger)

	router := server.NewRouter(server.RouterConfig{
		Logger: logger,
		DocumentHandler: handlers.NewDocumentHandler(ingestion, handlers.DocumentHandlerConfig{
			MaxUploadBytes: cfg.MaxUploadBytes,
			Debug:          cfg.Debug,
		}, logger),
		AskHandler:  handlers.NewAskHandler(answers, cfg.Debug, logger),
		HealthCheck: backend.health,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.Port),
			zap.String("vector_backend", cfg.VectorBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

type indexBackend struct {
	store  vectorindex.Store
	health server.HealthChecker
	close  func()
}

func openIndexBackend(ctx context.Context, cfg *config.Config, migrate bool, migrationsDir string, logger *zap.Logger) (*indexBackend, error) {
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		store, err := vectorindex.NewQdrantStore(ctx, vectorindex.QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Collection: cfg.QdrantCollection,
			Dimension:  cfg.TargetDimension,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open qdrant index: %w", err)
		}
		logger.Info("connected to qdrant",
			zap.String("host", cfg.QdrantHost),
			zap.String("collection", cfg.QdrantCollection))
		return &indexBackend{
			store:  store,
			health: store.HealthCheck,
			close:  func() { _ = store.Close() },
		}, nil

	case config.BackendPgvector:
		pool, err := database.NewPool(ctx, database.Config{
			URL:              cfg.DatabaseURL,
			StatementTimeout: cfg.IndexTimeout,
			ApplicationName:  "pawdocsd",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("connected to database")

		if migrate {
			if err := runMigrations(cfg.DatabaseURL, migrationsDir, logger); err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		return &indexBackend{
			store:  repository.NewVectorRecordRepository(pool),
			health: pool.Ping,
			close:  pool.Close,
		}, nil

	case config.BackendMemory:
		store, err := vectorindex.NewChromemStore(cfg.QdrantCollection, cfg.TargetDimension)
		if err != nil {
			return nil, err
		}
		logger.Warn("using in-memory vector index, documents are lost on restart")
		return &indexBackend{store: store, close: func() {}}, nil
	}
	return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
}

func modelLoader(cfg *config.Config) embedding.Loader {
	if cfg.EmbeddingProvider == config.ProviderOpenAI {
		return func(context.Context) (embedding.Model, error) {
			client, err := openai.NewClient(openai.Config{
				APIKey:  cfg.EmbeddingAPIKey,
				BaseURL: cfg.EmbeddingBaseURL,
				Model:   cfg.EmbeddingModel,
			})
			if err != nil {
				return nil, err
			}
			return client, nil
		}
	}
	return embedding.FastEmbedLoader(embedding.FastEmbedConfig{
		Model:    cfg.EmbeddingModel,
		CacheDir: cfg.EmbeddingCacheDir,
	})
}

func generators(cfg *config.Config, logger *zap.Logger) []service.Generator {
	if !cfg.HasGeneration() {
		logger.Warn("no generation API key configured, questions will return retrieved context only")
		return nil
	}

	chat := openai.NewChatGenerators(cfg.GenerationAPIKey, cfg.GenerationBaseURL, cfg.GenerationModels)
	gens := make([]service.Generator, len(chat))
	for i, g := range chat {
		gens[i] = g
	}
	return gens
}
