package service

import (
	"strings"

	"github.com/cloo-solutions/pawdocs/internal/domain"
)

// ChunkConfig controls how extracted text is split before embedding.
type ChunkConfig struct {
	Size    int
	Overlap int
}

func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1000,
		Overlap: 200,
	}
}

func (c ChunkConfig) Validate() error {
	if c.Size <= 0 || c.Overlap < 0 || c.Overlap >= c.Size {
		return domain.ErrInvalidChunking
	}
	return nil
}

// ChunkText splits text into fixed-size windows that advance by
// Size-Overlap characters. Offsets count runes; the window text is trimmed
// and whitespace-only windows are dropped.
func ChunkText(text string, cfg ChunkConfig) ([]domain.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	step := cfg.Size - cfg.Overlap
	chunks := make([]domain.Chunk, 0, len(runes)/step+1)

	for start := 0; start < len(runes); start += step {
		end := min(start+cfg.Size, len(runes))

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			Text:  chunk,
			Start: start,
			End:   end,
		})
	}

	return chunks, nil
}
