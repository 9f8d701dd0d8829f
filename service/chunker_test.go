package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_Empty(t *testing.T) {
	chunker := NewChunkerService(800, 80)

	assert.Nil(t, chunker.Chunk(""))
	assert.Nil(t, chunker.Chunk("   \n\t  "))
}

func TestChunk_SingleChunk(t *testing.T) {
	chunker := NewChunkerService(800, 80)

	chunks := chunker.Chunk("A short document.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short document.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestChunk_DenseIndexes(t *testing.T) {
	chunker := NewChunkerService(100, 10)

	text := strings.Repeat("This is a sentence that fills some space in the document. ", 50)
	chunks := chunker.Chunk(text)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.NotEmpty(t, chunk.Content)
	}
}

func TestChunk_PrefersSentenceBoundary(t *testing.T) {
	chunker := NewChunkerService(100, 10)

	text := strings.Repeat("One full sentence ends right here. ", 40)
	chunks := chunker.Chunk(text)
	require.Greater(t, len(chunks), 1)
	// Every chunk except possibly the last should end on a terminator.
	for _, chunk := range chunks[:len(chunks)-1] {
		last := chunk.Content[len(chunk.Content)-1]
		assert.True(t, last == '.' || last == '?' || last == '!',
			"chunk ends with %q", string(last))
	}
}

func TestChunk_OverlapCarriesText(t *testing.T) {
	chunker := NewChunkerService(100, 20)

	text := strings.Repeat("Sentences overlap between neighbouring chunks always. ", 40)
	chunks := chunker.Chunk(text)
	require.Greater(t, len(chunks), 1)

	// The tail of chunk 0 reappears at the head of chunk 1.
	tail := chunks[0].Content[len(chunks[0].Content)-40:]
	assert.Contains(t, chunks[1].Content, strings.TrimSpace(tail)[:20])
}

func TestChunk_TerminatesWithoutSentences(t *testing.T) {
	chunker := NewChunkerService(50, 40)

	// No terminators at all forces hard cuts; overlap must still make
	// forward progress.
	text := strings.Repeat("x", 5000)
	chunks := chunker.Chunk(text)
	require.NotEmpty(t, chunks)
	var total int
	for _, chunk := range chunks {
		total += len(chunk.Content)
	}
	assert.GreaterOrEqual(t, total, len(text))
}

func TestChunk_Deterministic(t *testing.T) {
	chunker := NewChunkerService(120, 12)

	text := strings.Repeat("Determinism matters for rebuilds. Same input, same output. ", 30)
	first := chunker.Chunk(text)
	second := chunker.Chunk(text)
	assert.Equal(t, first, second)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 100, EstimateTokens(strings.Repeat("x", 400)))
}
