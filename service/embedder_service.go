package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/aigroupchat/voicechat-be/types"
)

const (
	embeddingDimensions = 1536
	embeddingBatchCap   = 100
	embeddingRetries    = 3
)

// EmbedderService produces unit-normalized vectors from text through
// the embeddings endpoint.
type EmbedderService struct {
	client *openai.Client
	model  openai.EmbeddingModel
	logger *zap.Logger
}

func NewEmbedderService(baseURL, apiKey, model string, logger *zap.Logger) *EmbedderService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &EmbedderService{
		client: openai.NewClientWithConfig(config),
		model:  openai.EmbeddingModel(model),
		logger: logger,
	}
}

// EmbedQuery embeds a single string.
func (s *EmbedderService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts preserving order, splitting into API-sized
// sub-batches. Transient failures retry with exponential backoff.
func (s *EmbedderService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += embeddingBatchCap {
		end := i + embeddingBatchCap
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (s *EmbedderService) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= embeddingRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			s.logger.Warn("retrying embedding batch",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("embedding cancelled: %w", types.ErrBackendTimeout)
			case <-time.After(backoff):
			}
		}

		resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: s.model,
		})
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Data) != len(texts) {
			lastErr = fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
			continue
		}

		vectors := make([][]float32, len(texts))
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(vectors) {
				return nil, fmt.Errorf("embedding index %d out of range", item.Index)
			}
			vectors[item.Index] = normalize(item.Embedding)
		}
		return vectors, nil
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %v: %w", embeddingRetries+1, lastErr, types.ErrBackendError)
}

func normalize(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vector
	}
	normalized := make([]float32, len(vector))
	for i, v := range vector {
		normalized[i] = float32(float64(v) / norm)
	}
	return normalized
}
