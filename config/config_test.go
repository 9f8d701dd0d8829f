package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "mongo_db: \"\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "voicechat", cfg.MongoDB)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.SummarizerModel)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.3, cfg.Retrieval.SimilarityThreshold, 1e-9)
	assert.Equal(t, "openai", cfg.Contextual.Backend)
	assert.Equal(t, 10, cfg.Contextual.BatchThreshold)
	assert.Equal(t, 30, cfg.Contextual.RequestTimeoutSecs)
	assert.Equal(t, 800, cfg.Chunker.ChunkSize)
	assert.Equal(t, 80, cfg.Chunker.Overlap)
	assert.Equal(t, 4, cfg.Reranker.Workers)
}

func TestLoadConfig_FileValuesWin(t *testing.T) {
	path := writeConfig(t, `
port: "9090"
mongo_db: ragdb
retrieval:
  top_k: 12
  similarity_threshold: 0.55
chunker:
  chunk_size: 400
  overlap: 40
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "ragdb", cfg.MongoDB)
	assert.Equal(t, 12, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.55, cfg.Retrieval.SimilarityThreshold, 1e-9)
	assert.Equal(t, 400, cfg.Chunker.ChunkSize)
	assert.Equal(t, 40, cfg.Chunker.Overlap)
}

func TestLoadConfig_EnvOverridesFlags(t *testing.T) {
	t.Setenv("ENABLE_CONTEXTUAL_RETRIEVAL", "true")
	t.Setenv("USE_HYBRID_SEARCH", "true")
	path := writeConfig(t, "port: \"8000\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Contextual.Enabled)
	assert.True(t, cfg.Retrieval.UseHybridSearch)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
