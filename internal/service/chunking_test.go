package service

import (
	"strings"
	"testing"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_2500Chars(t *testing.T) {
	text := strings.Repeat("a", 2500)

	chunks, err := ChunkText(text, DefaultChunkConfig())
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	starts := make([]int, len(chunks))
	for i, c := range chunks {
		starts[i] = c.Start
	}
	assert.Equal(t, []int{0, 800, 1600, 2400}, starts)
	assert.Len(t, chunks[3].Text, 100)
	assert.Equal(t, 2500, chunks[3].End)
}

func TestChunkText_CoverageAndOverlap(t *testing.T) {
	configs := []ChunkConfig{
		{Size: 1000, Overlap: 200},
		{Size: 10, Overlap: 3},
		{Size: 7, Overlap: 0},
		{Size: 5, Overlap: 4},
	}
	lengths := []int{1, 6, 7, 10, 11, 99, 1000, 1001, 3333}

	for _, cfg := range configs {
		for _, n := range lengths {
			text := strings.Repeat("x", n)
			chunks, err := ChunkText(text, cfg)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			assert.Equal(t, 0, chunks[0].Start)
			covered := 0
			for i, c := range chunks {
				assert.LessOrEqual(t, c.End-c.Start, cfg.Size)
				assert.LessOrEqual(t, c.Start, covered, "gap before chunk %d", i)
				if c.End > covered {
					covered = c.End
				}
				if i > 0 {
					prev := chunks[i-1]
					assert.Equal(t, cfg.Size-cfg.Overlap, c.Start-prev.Start)
					if prev.End < n {
						assert.Equal(t, cfg.Overlap, prev.End-c.Start)
					}
				}
			}
			assert.Equal(t, n, covered)
		}
	}
}

func TestChunkText_ShortText(t *testing.T) {
	chunks, err := ChunkText("Feed twice daily.", DefaultChunkConfig())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.Chunk{Text: "Feed twice daily.", Start: 0, End: 17}, chunks[0])
}

func TestChunkText_EmptyAndBlank(t *testing.T) {
	chunks, err := ChunkText("", DefaultChunkConfig())
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = ChunkText("   \n\n\t  ", DefaultChunkConfig())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkText_DropsBlankWindows(t *testing.T) {
	text := "abcde" + strings.Repeat(" ", 10) + "fghij"

	chunks, err := ChunkText(text, ChunkConfig{Size: 5, Overlap: 0})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "abcde", chunks[0].Text)
	assert.Equal(t, "fghij", chunks[1].Text)
	assert.Equal(t, 15, chunks[1].Start)
}

func TestChunkText_TrimsTextButKeepsOffsets(t *testing.T) {
	chunks, err := ChunkText("  hello  world", ChunkConfig{Size: 8, Overlap: 0})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, domain.Chunk{Text: "hello", Start: 0, End: 8}, chunks[0])
	assert.Equal(t, domain.Chunk{Text: "world", Start: 8, End: 14}, chunks[1])
}

func TestChunkText_RuneOffsets(t *testing.T) {
	text := strings.Repeat("ü", 12)

	chunks, err := ChunkText(text, ChunkConfig{Size: 5, Overlap: 1})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 8, chunks[2].Start)
	assert.Equal(t, 12, chunks[2].End)
	assert.Equal(t, strings.Repeat("ü", 4), chunks[2].Text)
}

func TestChunkText_InvalidConfig(t *testing.T) {
	tests := []ChunkConfig{
		{Size: 0, Overlap: 0},
		{Size: 100, Overlap: 100},
		{Size: 100, Overlap: 150},
		{Size: 100, Overlap: -1},
	}

	for _, cfg := range tests {
		_, err := ChunkText("some text", cfg)
		assert.ErrorIs(t, err, domain.ErrInvalidChunking)
	}
}
