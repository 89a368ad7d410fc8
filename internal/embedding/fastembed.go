//go:build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

const DefaultFastEmbedModel = "BAAI/bge-base-en-v1.5"

var fastEmbedModels = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

type FastEmbedConfig struct {
	Model     string
	CacheDir  string
	MaxLength int
}

// FastEmbedModel runs a local ONNX embedding model.
type FastEmbedModel struct {
	mu    sync.Mutex
	model *fastembed.FlagEmbedding
}

// FastEmbedLoader returns a Loader that downloads (on first use) and opens
// the configured model.
func FastEmbedLoader(cfg FastEmbedConfig) Loader {
	return func(context.Context) (Model, error) {
		return NewFastEmbedModel(cfg)
	}
}

func NewFastEmbedModel(cfg FastEmbedConfig) (*FastEmbedModel, error) {
	name := cfg.Model
	if name == "" {
		name = DefaultFastEmbedModel
	}
	model, ok := fastEmbedModels[name]
	if !ok {
		return nil, fmt.Errorf("unsupported fastembed model %q", name)
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = "local_cache"
	}
	maxLength := cfg.MaxLength
	if maxLength == 0 {
		maxLength = 512
	}
	showProgress := false

	fe, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cacheDir,
		MaxLength:            maxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing fastembed: %w", err)
	}
	return &FastEmbedModel{model: fe}, nil
}

func (m *FastEmbedModel) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	vecs, err := m.model.PassageEmbed([]string{text}, 1)
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("fastembed returned %d vectors for 1 text", len(vecs))
	}
	return vecs[0], nil
}

func (m *FastEmbedModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.model.PassageEmbed(texts, len(texts))
}

func (m *FastEmbedModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model.Destroy()
}
