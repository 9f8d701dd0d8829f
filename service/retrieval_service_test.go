package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aigroupchat/voicechat-be/config"
	"github.com/aigroupchat/voicechat-be/types"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

type fakeVectorSearcher struct {
	hits    []types.SearchResult
	err     error
	called  bool
	allowed []string
}

func (f *fakeVectorSearcher) VectorSearch(ctx context.Context, ownerID string, vector []float32, threshold float64, limit int, allowedDocIDs []string) ([]types.SearchResult, error) {
	f.called = true
	f.allowed = allowedDocIDs
	return f.hits, f.err
}

type fakeKeywordSearcher struct {
	hits   []types.SearchResult
	called bool
}

func (f *fakeKeywordSearcher) Search(ownerID, query string, limit int, allowedDocIDs []string) []types.SearchResult {
	f.called = true
	return f.hits
}

type fakeReranker struct {
	scores []float64
	err    error
}

func (f *fakeReranker) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.scores[:len(documents)], nil
}

type fakeScope struct {
	allowed    []string
	restricted bool
	err        error
}

func (f *fakeScope) ResolveScope(ctx context.Context, ownerID, agentID string) ([]string, bool, error) {
	return f.allowed, f.restricted, f.err
}

func hit(chunkID string) types.SearchResult {
	return types.SearchResult{ChunkID: chunkID, DocumentID: "d1", Content: "content " + chunkID}
}

func newTestRetrieval(embedder QueryEmbedder, vector VectorSearcher, keyword KeywordSearcher, reranker Reranker, scope ScopeResolver, cfg config.RetrievalConfig) *RetrievalService {
	if cfg.TopK == 0 {
		cfg.TopK = 5
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.3
	}
	return NewRetrievalService(embedder, vector, keyword, reranker, scope, cfg, zap.NewNop())
}

func TestRetrieve_FusesBothPaths(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []types.SearchResult{hit("a"), hit("b"), hit("c")}}
	keyword := &fakeKeywordSearcher{hits: []types.SearchResult{hit("b"), hit("d")}}
	svc := newTestRetrieval(
		&fakeEmbedder{vector: []float32{0.1}},
		vector, keyword, nil, &fakeScope{},
		config.RetrievalConfig{UseHybridSearch: true})

	results, degraded, err := svc.Retrieve(context.Background(), "query", "owner", "", 5, 0.3)
	require.NoError(t, err)
	assert.False(t, degraded)
	require.Len(t, results, 4)
	// "b" appears in both rankings so it wins fusion.
	assert.Equal(t, "b", results[0].ChunkID)
	assert.True(t, vector.called)
	assert.True(t, keyword.called)
}

func TestRetrieve_VectorFailureDegradesToKeyword(t *testing.T) {
	vector := &fakeVectorSearcher{err: errors.New("embedding backend down")}
	keyword := &fakeKeywordSearcher{hits: []types.SearchResult{hit("k1"), hit("k2")}}
	svc := newTestRetrieval(
		&fakeEmbedder{vector: []float32{0.1}},
		vector, keyword, nil, &fakeScope{},
		config.RetrievalConfig{UseHybridSearch: true})

	results, degraded, err := svc.Retrieve(context.Background(), "query", "owner", "", 5, 0.3)
	require.NoError(t, err)
	assert.True(t, degraded)
	require.Len(t, results, 2)
	assert.Equal(t, "k1", results[0].ChunkID)
}

func TestRetrieve_EmbedFailureDegradesToKeyword(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []types.SearchResult{hit("never")}}
	keyword := &fakeKeywordSearcher{hits: []types.SearchResult{hit("k1")}}
	svc := newTestRetrieval(
		&fakeEmbedder{err: errors.New("timeout")},
		vector, keyword, nil, &fakeScope{},
		config.RetrievalConfig{UseHybridSearch: true})

	results, degraded, err := svc.Retrieve(context.Background(), "query", "owner", "", 5, 0.3)
	require.NoError(t, err)
	assert.True(t, degraded)
	require.Len(t, results, 1)
	assert.Equal(t, "k1", results[0].ChunkID)
	assert.False(t, vector.called)
}

func TestRetrieve_BothPathsEmpty(t *testing.T) {
	svc := newTestRetrieval(
		&fakeEmbedder{err: errors.New("down")},
		&fakeVectorSearcher{}, &fakeKeywordSearcher{}, nil, &fakeScope{},
		config.RetrievalConfig{UseHybridSearch: true})

	results, degraded, err := svc.Retrieve(context.Background(), "query", "owner", "", 5, 0.3)
	require.NoError(t, err)
	assert.True(t, degraded)
	assert.Empty(t, results)
}

func TestRetrieve_ZeroLinkAgentReadsNothing(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []types.SearchResult{hit("a")}}
	keyword := &fakeKeywordSearcher{hits: []types.SearchResult{hit("b")}}
	svc := newTestRetrieval(
		&fakeEmbedder{vector: []float32{0.1}},
		vector, keyword, nil,
		&fakeScope{restricted: true, allowed: nil},
		config.RetrievalConfig{UseHybridSearch: true})

	results, degraded, err := svc.Retrieve(context.Background(), "query", "owner", "agent", 5, 0.3)
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Empty(t, results)
	assert.False(t, vector.called)
	assert.False(t, keyword.called)
}

func TestRetrieve_ScopeErrorPropagates(t *testing.T) {
	svc := newTestRetrieval(
		&fakeEmbedder{vector: []float32{0.1}},
		&fakeVectorSearcher{}, &fakeKeywordSearcher{}, nil,
		&fakeScope{err: types.ErrForbidden},
		config.RetrievalConfig{UseHybridSearch: true})

	_, _, err := svc.Retrieve(context.Background(), "query", "owner", "agent", 5, 0.3)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestRetrieve_TruncatesToTopK(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []types.SearchResult{
		hit("a"), hit("b"), hit("c"), hit("d"), hit("e"),
	}}
	svc := newTestRetrieval(
		&fakeEmbedder{vector: []float32{0.1}},
		vector, &fakeKeywordSearcher{}, nil, &fakeScope{},
		config.RetrievalConfig{UseHybridSearch: true})

	results, _, err := svc.Retrieve(context.Background(), "query", "owner", "", 2, 0.3)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetrieve_RerankReordersShortlist(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []types.SearchResult{hit("a"), hit("b"), hit("c")}}
	// Score "c" highest so rerank inverts the fused order.
	reranker := &fakeReranker{scores: []float64{0.1, 0.5, 0.9}}
	svc := newTestRetrieval(
		&fakeEmbedder{vector: []float32{0.1}},
		vector, &fakeKeywordSearcher{}, reranker, &fakeScope{},
		config.RetrievalConfig{UseHybridSearch: true, UseRerank: true})

	results, _, err := svc.Retrieve(context.Background(), "query", "owner", "", 3, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "c", results[0].ChunkID)
	require.NotNil(t, results[0].RerankScore)
	assert.InDelta(t, 0.9, *results[0].RerankScore, 1e-9)
}

func TestRetrieve_RerankFailureKeepsFusedOrder(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []types.SearchResult{hit("a"), hit("b")}}
	reranker := &fakeReranker{err: errors.New("rerank down")}
	svc := newTestRetrieval(
		&fakeEmbedder{vector: []float32{0.1}},
		vector, &fakeKeywordSearcher{}, reranker, &fakeScope{},
		config.RetrievalConfig{UseHybridSearch: true, UseRerank: true})

	results, _, err := svc.Retrieve(context.Background(), "query", "owner", "", 2, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ChunkID)
	assert.Nil(t, results[0].RerankScore)
}

func TestReciprocalRankFusion_Deterministic(t *testing.T) {
	listA := []types.SearchResult{hit("a"), hit("b"), hit("c")}
	listB := []types.SearchResult{hit("c"), hit("d")}

	first := reciprocalRankFusion(listA, listB)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, reciprocalRankFusion(listA, listB))
	}
}

func TestReciprocalRankFusion_Scores(t *testing.T) {
	listA := []types.SearchResult{hit("a"), hit("b")}
	listB := []types.SearchResult{hit("b")}

	fused := reciprocalRankFusion(listA, listB)
	require.Len(t, fused, 2)
	assert.Equal(t, "b", fused[0].ChunkID)
	// b: 1/(60+2) + 1/(60+1), a: 1/(60+1)
	assert.InDelta(t, 1.0/62+1.0/61, fused[0].Score, 1e-9)
	assert.InDelta(t, 1.0/61, fused[1].Score, 1e-9)
}

func TestReciprocalRankFusion_EmptyInputs(t *testing.T) {
	assert.Empty(t, reciprocalRankFusion(nil, nil))

	one := reciprocalRankFusion([]types.SearchResult{hit("a")}, nil)
	require.Len(t, one, 1)
	assert.Equal(t, "a", one[0].ChunkID)
}
