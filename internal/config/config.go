package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Vector index backends.
const (
	BackendQdrant   = "qdrant"
	BackendPgvector = "pgvector"
	BackendMemory   = "memory"
)

// Embedding model providers.
const (
	ProviderFastEmbed = "fastembed"
	ProviderOpenAI    = "openai"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	VectorBackend    string `envconfig:"VECTOR_BACKEND" default:"qdrant"`
	QdrantHost       string `envconfig:"QDRANT_HOST" default:"localhost"`
	QdrantPort       int    `envconfig:"QDRANT_PORT" default:"6334"`
	QdrantAPIKey     string `envconfig:"QDRANT_API_KEY"`
	QdrantUseTLS     bool   `envconfig:"QDRANT_USE_TLS" default:"false"`
	QdrantCollection string `envconfig:"QDRANT_COLLECTION" default:"medical_documents"`
	DatabaseURL      string `envconfig:"DATABASE_URL"`

	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER" default:"fastembed"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingCacheDir string `envconfig:"EMBEDDING_CACHE_DIR"`
	EmbeddingAPIKey   string `envconfig:"EMBEDDING_API_KEY"`
	EmbeddingBaseURL  string `envconfig:"EMBEDDING_BASE_URL"`
	TargetDimension   int    `envconfig:"TARGET_DIMENSION" default:"3072"`

	GenerationAPIKey  string   `envconfig:"GENERATION_API_KEY"`
	GenerationBaseURL string   `envconfig:"GENERATION_BASE_URL" default:"https://openrouter.ai/api/v1"`
	GenerationModels  []string `envconfig:"GENERATION_MODELS" default:"tngtech/deepseek-r1t2-chimera:free,perplexity/llama-3.1-sonar-small-chat,google/gemma-2-9b-it"`

	ChunkSize       int   `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap    int   `envconfig:"CHUNK_OVERLAP" default:"200"`
	EmbedBatchSize  int   `envconfig:"EMBED_BATCH_SIZE" default:"20"`
	UpsertBatchSize int   `envconfig:"UPSERT_BATCH_SIZE" default:"100"`
	DefaultTopK     int   `envconfig:"DEFAULT_TOP_K" default:"5"`
	MaxUploadBytes  int64 `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`

	EmbedTimeout      time.Duration `envconfig:"EMBED_TIMEOUT" default:"60s"`
	IndexTimeout      time.Duration `envconfig:"INDEX_TIMEOUT" default:"30s"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"30s"`

	// Optional archive of uploaded source documents
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"pawdocs-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PAWDOCS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks tunables that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("invalid chunking: size %d must be greater than overlap %d >= 0", c.ChunkSize, c.ChunkOverlap)
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("embed batch size must be positive, got %d", c.EmbedBatchSize)
	}
	if c.UpsertBatchSize <= 0 {
		return fmt.Errorf("upsert batch size must be positive, got %d", c.UpsertBatchSize)
	}
	if c.TargetDimension <= 0 {
		return fmt.Errorf("target dimension must be positive, got %d", c.TargetDimension)
	}

	switch c.VectorBackend {
	case BackendQdrant, BackendMemory:
	case BackendPgvector:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", BackendPgvector)
		}
	default:
		return fmt.Errorf("unknown vector backend %q", c.VectorBackend)
	}

	switch c.EmbeddingProvider {
	case ProviderFastEmbed, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown embedding provider %q", c.EmbeddingProvider)
	}

	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasGeneration() bool {
	return c.GenerationAPIKey != "" && len(c.GenerationModels) > 0
}
