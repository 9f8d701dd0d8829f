package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aigroupchat/voicechat-be/types"
)

// RerankerService scores (query, candidate) pairs against a TEI-style
// /rerank endpoint. Inference requests run through a fixed worker gate
// so a burst cannot starve the rest of the process.
type RerankerService struct {
	endpoint string
	client   *http.Client
	workers  chan struct{}
	logger   *zap.Logger
}

func NewRerankerService(endpoint string, workers int, logger *zap.Logger) *RerankerService {
	if workers <= 0 {
		workers = 4
	}
	return &RerankerService{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		workers: make(chan struct{}, workers),
		logger:  logger,
	}
}

// Warmup issues one throwaway call so model load cost is paid at
// startup, not on the first user query.
func (s *RerankerService) Warmup(ctx context.Context) {
	if _, err := s.Rerank(ctx, "warmup", []string{"warmup"}); err != nil {
		s.logger.Warn("reranker warmup failed", zap.Error(err))
	}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"texts"`
}

type rerankResponseItem struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Rerank returns one score per document, in document order.
func (s *RerankerService) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	select {
	case s.workers <- struct{}{}:
		defer func() { <-s.workers }()
	case <-ctx.Done():
		return nil, fmt.Errorf("rerank queue: %w", types.ErrBackendTimeout)
	}

	payload, err := json.Marshal(rerankRequest{Query: query, Documents: documents})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rerank returned %d: %s: %w", resp.StatusCode, body, types.ErrBackendError)
	}

	var items []rerankResponseItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	scores := make([]float64, len(documents))
	for _, item := range items {
		if item.Index < 0 || item.Index >= len(scores) {
			return nil, fmt.Errorf("rerank index %d out of range", item.Index)
		}
		scores[item.Index] = item.Score
	}
	return scores, nil
}
