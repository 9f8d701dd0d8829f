package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aigroupchat/voicechat-be/types"
)

const (
	contextTopK       = 5
	contextThreshold  = 0.3
	contextCharBudget = 4000

	// contextSoftBudget is the end-to-end target for one turn. Exceeding
	// it is logged, never failed.
	contextSoftBudget = 400 * time.Millisecond
)

// DocumentMetaSource resolves a document's title on cache miss.
type DocumentMetaSource interface {
	GetDocument(ctx context.Context, ownerID, id string) (*types.Document, error)
}

// ContextService turns one user utterance into a bounded context block
// for the agent. Side-effect-free apart from log lines and filling the
// metadata cache with resolved titles.
type ContextService struct {
	retriever *RetrievalService
	cache     *MetadataCache
	documents DocumentMetaSource
	logger    *zap.Logger
}

func NewContextService(retriever *RetrievalService, cache *MetadataCache, documents DocumentMetaSource, logger *zap.Logger) *ContextService {
	return &ContextService{
		retriever: retriever,
		cache:     cache,
		documents: documents,
		logger:    logger,
	}
}

// GetContext retrieves and formats context for one turn. An empty query
// short-circuits without touching any backend.
func (s *ContextService) GetContext(ctx context.Context, query, ownerID, agentID string) (*types.ContextResponse, error) {
	if strings.TrimSpace(query) == "" {
		return &types.ContextResponse{HasContext: false}, nil
	}

	start := time.Now()
	results, degraded, err := s.retriever.Retrieve(ctx, query, ownerID, agentID, contextTopK, contextThreshold)
	if err != nil {
		return nil, err
	}

	response := &types.ContextResponse{}
	if len(results) > 0 {
		response.Context = s.formatBlocks(ctx, ownerID, results)
		response.HasContext = true
	}

	elapsed := time.Since(start)
	if elapsed > contextSoftBudget {
		s.logger.Warn("context turn exceeded soft budget",
			zap.Duration("elapsed", elapsed),
			zap.String("owner_id", ownerID),
			zap.Bool("degraded", degraded))
	}
	return response, nil
}

// formatBlocks renders "From '<title>':" blocks separated by blank
// lines, truncated to the character budget.
func (s *ContextService) formatBlocks(ctx context.Context, ownerID string, results []types.SearchResult) string {
	var sb strings.Builder
	for _, result := range results {
		block := fmt.Sprintf("From '%s':\n%s", s.title(ctx, ownerID, result.DocumentID), result.Content)
		if sb.Len() > 0 {
			if sb.Len()+2+len(block) > contextCharBudget {
				break
			}
			sb.WriteString("\n\n")
		} else if len(block) > contextCharBudget {
			return block[:contextCharBudget]
		}
		sb.WriteString(block)
	}
	return sb.String()
}

func (s *ContextService) title(ctx context.Context, ownerID, documentID string) string {
	if meta, ok := s.cache.Get(documentID); ok {
		return meta.Title
	}
	doc, err := s.documents.GetDocument(ctx, ownerID, documentID)
	if err != nil {
		s.logger.Warn("failed to resolve document title",
			zap.String("document_id", documentID),
			zap.Error(err))
		return "Unknown document"
	}
	s.cache.Set(documentID, types.DocumentMeta{Title: doc.Title, Type: doc.Type})
	return doc.Title
}
