package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/aigroupchat/voicechat-be/config"
	"github.com/aigroupchat/voicechat-be/types"
)

// Per-million-token prices for the summarizer model. Batch calls settle
// at half these rates.
const (
	priceInputPerMTok     = 0.15
	priceOutputPerMTok    = 0.60
	priceCacheReadPerMTok = 0.075
)

const contextualConcurrency = 4

// ContextualOutcome summarizes one document's contextualization run.
type ContextualOutcome struct {
	Processed int
	Failed    int
	Skipped   int
	Usage     types.TokenUsage
	CostUSD   float64
}

// ContextualService enriches chunks with situating context before they
// are embedded and indexed. Every failure mode leaves the chunk usable
// with is_contextualized=false.
type ContextualService struct {
	summarizer Summarizer
	cfg        config.ContextualConfig
	logger     *zap.Logger
	limiter    *rate.Limiter

	mu            sync.Mutex
	day           string
	dailyRequests int
}

func NewContextualService(summarizer Summarizer, cfg config.ContextualConfig, logger *zap.Logger) *ContextualService {
	return &ContextualService{
		summarizer: summarizer,
		cfg:        cfg,
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Limit(contextualConcurrency), contextualConcurrency),
	}
}

// Enabled reports whether contextualization will run at all.
func (s *ContextualService) Enabled() bool {
	return s.cfg.Enabled && s.summarizer != nil
}

// Process enriches chunks in place. Already-contextualized chunks are
// skipped so reruns never double-charge tokens. Documents over the
// token cap are passed through untouched.
func (s *ContextualService) Process(ctx context.Context, document string, chunks []types.Chunk) *ContextualOutcome {
	outcome := &ContextualOutcome{}
	if !s.Enabled() || len(chunks) == 0 {
		outcome.Skipped = len(chunks)
		return outcome
	}

	if s.cfg.MaxTokensPerDocument > 0 && EstimateTokens(document) > s.cfg.MaxTokensPerDocument {
		s.logger.Info("document over contextual token cap, skipping",
			zap.Int("document_tokens", EstimateTokens(document)),
			zap.Int("cap", s.cfg.MaxTokensPerDocument))
		outcome.Skipped = len(chunks)
		return outcome
	}

	pending := make([]int, 0, len(chunks))
	for i := range chunks {
		if chunks[i].IsContextualized {
			outcome.Skipped++
			continue
		}
		if !s.reserveRequest() {
			s.logger.Warn("daily contextual request cap reached, skipping chunk",
				zap.Int("chunk_index", chunks[i].ChunkIndex))
			outcome.Skipped++
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return outcome
	}

	batcher, canBatch := s.summarizer.(BatchSummarizer)
	if s.cfg.UseBatchAPI && canBatch && len(pending) >= s.cfg.BatchThreshold {
		s.processBatch(ctx, document, chunks, pending, batcher, outcome)
	} else {
		s.processStreamed(ctx, document, chunks, pending, outcome)
	}
	return outcome
}

func (s *ContextualService) processStreamed(ctx context.Context, document string, chunks []types.Chunk, pending []int, outcome *ContextualOutcome) {
	sem := semaphore.NewWeighted(contextualConcurrency)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, idx := range pending {
		idx := idx
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				mu.Lock()
				outcome.Failed++
				mu.Unlock()
				return nil
			}
			defer sem.Release(1)
			if err := s.limiter.Wait(gctx); err != nil {
				mu.Lock()
				outcome.Failed++
				mu.Unlock()
				return nil
			}

			callCtx, cancel := context.WithTimeout(gctx, time.Duration(s.cfg.RequestTimeoutSecs)*time.Second)
			defer cancel()
			result, err := s.summarizer.Summarize(callCtx, document, chunks[idx].Content)

			mu.Lock()
			defer mu.Unlock()
			if err != nil || result.Context == "" {
				s.logger.Warn("chunk contextualization failed",
					zap.Int("chunk_index", chunks[idx].ChunkIndex),
					zap.Error(err))
				outcome.Failed++
				return nil
			}
			applyContext(&chunks[idx], result.Context)
			outcome.Processed++
			outcome.Usage.Add(result.Usage)
			outcome.CostUSD += costEstimate(result.Usage, false)
			return nil
		})
	}
	g.Wait()
}

func (s *ContextualService) processBatch(ctx context.Context, document string, chunks []types.Chunk, pending []int, batcher BatchSummarizer, outcome *ContextualOutcome) {
	texts := make([]string, len(pending))
	for i, idx := range pending {
		texts[i] = chunks[idx].Content
	}

	results, err := batcher.SummarizeBatch(ctx, document, texts)
	if err != nil {
		s.logger.Warn("contextual batch failed, chunks proceed unenriched", zap.Error(err))
		outcome.Failed += len(pending)
		return
	}

	for i, idx := range pending {
		result := results[i]
		if result == nil || result.Context == "" {
			outcome.Failed++
			continue
		}
		applyContext(&chunks[idx], result.Context)
		outcome.Processed++
		outcome.Usage.Add(result.Usage)
		outcome.CostUSD += costEstimate(result.Usage, true)
	}
}

func applyContext(chunk *types.Chunk, situating string) {
	chunk.ContextualContent = situating + "\n" + chunk.Content
	chunk.IsContextualized = true
}

// reserveRequest consumes one slot of the daily request budget.
func (s *ContextualService) reserveRequest() bool {
	if s.cfg.MaxDailyRequests <= 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	today := time.Now().UTC().Format("2006-01-02")
	if s.day != today {
		s.day = today
		s.dailyRequests = 0
	}
	if s.dailyRequests >= s.cfg.MaxDailyRequests {
		return false
	}
	s.dailyRequests++
	return true
}

func costEstimate(usage types.TokenUsage, batch bool) float64 {
	cost := float64(usage.Input+usage.CacheCreation)*priceInputPerMTok/1e6 +
		float64(usage.Output)*priceOutputPerMTok/1e6 +
		float64(usage.CacheRead)*priceCacheReadPerMTok/1e6
	if batch {
		cost /= 2
	}
	return cost
}
