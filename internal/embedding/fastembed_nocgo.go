//go:build !cgo

package embedding

import (
	"context"
	"errors"
)

const DefaultFastEmbedModel = "BAAI/bge-base-en-v1.5"

// ErrFastEmbedNotAvailable is returned by binaries built without cgo.
var ErrFastEmbedNotAvailable = errors.New("fastembed: not available in builds without cgo, use the openai embedding provider")

type FastEmbedConfig struct {
	Model     string
	CacheDir  string
	MaxLength int
}

func FastEmbedLoader(FastEmbedConfig) Loader {
	return func(context.Context) (Model, error) {
		return nil, ErrFastEmbedNotAvailable
	}
}
