package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aigroupchat/voicechat-be/config"
	"github.com/aigroupchat/voicechat-be/types"
)

const (
	// searchStageDeadline bounds the parallel vector+keyword stage. The
	// deadline is a budget: whichever path finished in time is used.
	searchStageDeadline = 150 * time.Millisecond

	rrfK            = 60
	rerankShortlist = 20
)

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher is the dense retrieval path.
type VectorSearcher interface {
	VectorSearch(ctx context.Context, ownerID string, vector []float32, threshold float64, limit int, allowedDocIDs []string) ([]types.SearchResult, error)
}

// KeywordSearcher is the sparse retrieval path over in-memory snapshots.
type KeywordSearcher interface {
	Search(ownerID, query string, limit int, allowedDocIDs []string) []types.SearchResult
}

// Reranker rescores a shortlist of candidates against the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
}

// ScopeResolver turns an optional agent id into a document allow-list.
type ScopeResolver interface {
	ResolveScope(ctx context.Context, ownerID, agentID string) (allowed []string, restricted bool, err error)
}

// RetrievalService orchestrates dense and sparse search, fuses with
// reciprocal rank fusion and optionally reranks the shortlist.
type RetrievalService struct {
	embedder QueryEmbedder
	vector   VectorSearcher
	keyword  KeywordSearcher
	reranker Reranker
	scope    ScopeResolver
	cfg      config.RetrievalConfig
	logger   *zap.Logger
}

func NewRetrievalService(embedder QueryEmbedder, vector VectorSearcher, keyword KeywordSearcher, reranker Reranker, scope ScopeResolver, cfg config.RetrievalConfig, logger *zap.Logger) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		vector:   vector,
		keyword:  keyword,
		reranker: reranker,
		scope:    scope,
		cfg:      cfg,
		logger:   logger,
	}
}

// Retrieve runs one hybrid query. A single failed path degrades to the
// other; both failing yields an empty result with degraded=true, never
// an error the caller has to handle.
func (s *RetrievalService) Retrieve(ctx context.Context, query, ownerID, agentID string, topK int, threshold float64) ([]types.SearchResult, bool, error) {
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	if threshold <= 0 {
		threshold = s.cfg.SimilarityThreshold
	}

	allowed, restricted, err := s.scope.ResolveScope(ctx, ownerID, agentID)
	if err != nil {
		return nil, false, err
	}
	// An agent with zero linked documents reads nothing.
	if restricted && len(allowed) == 0 {
		return nil, false, nil
	}

	candidates := 3 * topK

	stageCtx, cancel := context.WithTimeout(ctx, searchStageDeadline)
	defer cancel()

	var (
		wg          sync.WaitGroup
		vectorHits  []types.SearchResult
		keywordHits []types.SearchResult
		vectorErr   error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		vector, err := s.embedder.EmbedQuery(stageCtx, query)
		if err != nil {
			vectorErr = err
			return
		}
		vectorHits, vectorErr = s.vector.VectorSearch(stageCtx, ownerID, vector, threshold, candidates, allowed)
	}()

	keywordCh := make(chan []types.SearchResult, 1)
	if s.cfg.UseHybridSearch {
		go func() {
			keywordCh <- s.keyword.Search(ownerID, query, candidates, allowed)
		}()
	}
	wg.Wait()

	if s.cfg.UseHybridSearch {
		select {
		case keywordHits = <-keywordCh:
		case <-stageCtx.Done():
			select {
			case keywordHits = <-keywordCh:
			default:
				s.logger.Warn("keyword path missed the stage deadline",
					zap.String("owner_id", ownerID))
			}
		}
	}

	degraded := false
	if vectorErr != nil {
		s.logger.Warn("vector path failed, degrading to keyword results",
			zap.String("owner_id", ownerID),
			zap.Error(vectorErr))
		degraded = true
	}

	fused := reciprocalRankFusion(vectorHits, keywordHits)
	if len(fused) == 0 {
		return nil, degraded || vectorErr != nil, nil
	}

	if s.cfg.UseRerank && s.reranker != nil {
		fused = s.rerank(ctx, query, fused, topK)
	}

	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, degraded, nil
}

// reciprocalRankFusion merges the two rankings with constant k=60. A
// candidate absent from one list contributes nothing for that list.
// Identical inputs always produce identical output order.
func reciprocalRankFusion(listA, listB []types.SearchResult) []types.SearchResult {
	type fusedHit struct {
		hit   types.SearchResult
		score float64
		order int
	}
	merged := make(map[string]*fusedHit)
	order := 0

	accumulate := func(list []types.SearchResult) {
		for rank, hit := range list {
			rrf := 1.0 / float64(rrfK+rank+1)
			if existing, ok := merged[hit.ChunkID]; ok {
				existing.score += rrf
				continue
			}
			merged[hit.ChunkID] = &fusedHit{hit: hit, score: rrf, order: order}
			order++
		}
	}
	accumulate(listA)
	accumulate(listB)

	fused := make([]*fusedHit, 0, len(merged))
	for _, hit := range merged {
		fused = append(fused, hit)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].order < fused[j].order
	})

	results := make([]types.SearchResult, len(fused))
	for i, hit := range fused {
		results[i] = hit.hit
		results[i].Score = hit.score
	}
	return results
}

// rerank rescores the fused shortlist. Ties and failures keep the fused
// order.
func (s *RetrievalService) rerank(ctx context.Context, query string, fused []types.SearchResult, topK int) []types.SearchResult {
	shortlist := 3 * topK
	if shortlist > rerankShortlist {
		shortlist = rerankShortlist
	}
	if shortlist > len(fused) {
		shortlist = len(fused)
	}

	documents := make([]string, shortlist)
	for i := 0; i < shortlist; i++ {
		documents[i] = fused[i].Content
	}

	scores, err := s.reranker.Rerank(ctx, query, documents)
	if err != nil {
		s.logger.Warn("rerank failed, keeping fused order", zap.Error(err))
		return fused
	}

	head := make([]types.SearchResult, shortlist)
	copy(head, fused[:shortlist])
	for i := range head {
		score := scores[i]
		head[i].RerankScore = &score
	}
	sort.SliceStable(head, func(i, j int) bool {
		return *head[i].RerankScore > *head[j].RerankScore
	})

	reordered := make([]types.SearchResult, 0, len(fused))
	reordered = append(reordered, head...)
	reordered = append(reordered, fused[shortlist:]...)
	return reordered
}
