package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aigroupchat/voicechat-be/database"
	"github.com/aigroupchat/voicechat-be/index"
	"github.com/aigroupchat/voicechat-be/repository"
	"github.com/aigroupchat/voicechat-be/types"
)

// BatchEmbedder turns a batch of texts into vectors, preserving order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentService owns the ingest pipeline and document lifecycle:
// parse, chunk, contextualize, embed, store, index.
type DocumentService struct {
	documents  repository.DocumentRepo
	agents     repository.AgentRepo
	stats      repository.StatsRepo
	store      database.ChunkStore
	parser     *ParserService
	chunker    *ChunkerService
	contextual *ContextualService
	embedder   BatchEmbedder
	registry   *index.Registry
	cache      *MetadataCache
	hub        *ProgressHub
	logger     *zap.Logger
}

func NewDocumentService(
	documents repository.DocumentRepo,
	agents repository.AgentRepo,
	stats repository.StatsRepo,
	store database.ChunkStore,
	parser *ParserService,
	chunker *ChunkerService,
	contextual *ContextualService,
	embedder BatchEmbedder,
	registry *index.Registry,
	cache *MetadataCache,
	hub *ProgressHub,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		documents:  documents,
		agents:     agents,
		stats:      stats,
		store:      store,
		parser:     parser,
		chunker:    chunker,
		contextual: contextual,
		embedder:   embedder,
		registry:   registry,
		cache:      cache,
		hub:        hub,
		logger:     logger,
	}
}

// Upload runs the full ingest pipeline for one blob. The pipeline is
// detached from the request context so a client disconnect cannot leave
// half a document behind.
func (s *DocumentService) Upload(ctx context.Context, ownerID, title, docType string, data []byte) (*types.UploadResponse, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("owner id is required: %w", types.ErrInvalidInput)
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("document title is required: %w", types.ErrInvalidInput)
	}
	ctx = context.WithoutCancel(ctx)
	documentID := uuid.NewString()
	start := time.Now()

	s.publish(ownerID, documentID, title, types.IngestStageParsing, 0.1, 0, 0, "")
	text, err := s.parser.Parse(data, docType)
	if err != nil {
		s.publish(ownerID, documentID, title, types.IngestStageFailed, 0, 0, 0, err.Error())
		return nil, err
	}

	s.publish(ownerID, documentID, title, types.IngestStageChunking, 0.2, 0, 0, "")
	textChunks := s.chunker.Chunk(text)
	if len(textChunks) == 0 {
		s.publish(ownerID, documentID, title, types.IngestStageFailed, 0, 0, 0, types.ErrEmptyDocument.Error())
		return nil, types.ErrEmptyDocument
	}

	chunks := make([]types.Chunk, len(textChunks))
	for i, tc := range textChunks {
		chunks[i] = types.Chunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Content:    tc.Content,
			ChunkIndex: tc.Index,
		}
	}

	s.publish(ownerID, documentID, title, types.IngestStageContextualized, 0.4, len(chunks), 0, "")
	outcome := s.contextual.Process(ctx, text, chunks)

	s.publish(ownerID, documentID, title, types.IngestStageEmbedding, 0.6, len(chunks), outcome.Processed, "")
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].EmbeddingText()
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		s.publish(ownerID, documentID, title, types.IngestStageFailed, 0, len(chunks), 0, err.Error())
		return nil, fmt.Errorf("failed to embed document: %w", err)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	s.publish(ownerID, documentID, title, types.IngestStageStoring, 0.8, len(chunks), len(chunks), "")
	doc := &types.Document{
		ID:      documentID,
		OwnerID: ownerID,
		Title:   title,
		Type:    docType,
		Metadata: map[string]interface{}{
			"chunk_count":          len(chunks),
			"contextualized_count": outcome.Processed,
		},
	}
	if err := s.documents.CreateDocument(ctx, doc); err != nil {
		s.publish(ownerID, documentID, title, types.IngestStageFailed, 0, len(chunks), 0, err.Error())
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	if err := s.store.BatchInsertChunks(ctx, ownerID, chunks); err != nil {
		// Roll back any chunks that did land and the document row so a
		// retry starts clean.
		if delErr := s.store.DeleteByDocument(ctx, ownerID, documentID); delErr != nil {
			s.logger.Error("failed to roll back chunks after chunk insert failure",
				zap.String("document_id", documentID),
				zap.Error(delErr))
		}
		if delErr := s.documents.DeleteDocument(ctx, ownerID, documentID); delErr != nil {
			s.logger.Error("failed to roll back document after chunk insert failure",
				zap.String("document_id", documentID),
				zap.Error(delErr))
		}
		s.publish(ownerID, documentID, title, types.IngestStageFailed, 0, len(chunks), 0, err.Error())
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}

	if err := s.registry.Rebuild(ctx, ownerID); err != nil {
		s.logger.Warn("keyword index rebuild failed after ingest",
			zap.String("owner_id", ownerID),
			zap.Error(err))
	}
	s.cache.Set(documentID, types.DocumentMeta{Title: title, Type: docType})

	s.recordStat(ctx, ownerID, documentID, len(chunks), outcome, time.Since(start))
	s.publish(ownerID, documentID, title, types.IngestStageDone, 1.0, len(chunks), len(chunks), "")

	s.logger.Info("document ingested",
		zap.String("owner_id", ownerID),
		zap.String("document_id", documentID),
		zap.Int("chunks", len(chunks)),
		zap.Int("contextualized", outcome.Processed),
		zap.Duration("elapsed", time.Since(start)))

	return &types.UploadResponse{DocumentID: documentID, ChunkCount: len(chunks)}, nil
}

func (s *DocumentService) GetDocument(ctx context.Context, ownerID, id string) (*types.Document, error) {
	return s.documents.GetDocument(ctx, ownerID, id)
}

// GetDocumentWithChunks returns the document row together with its stored
// sections in chunk order.
func (s *DocumentService) GetDocumentWithChunks(ctx context.Context, ownerID, id string) (*types.Document, []types.Chunk, error) {
	doc, err := s.documents.GetDocument(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	chunks, err := s.store.GetChunksByDocument(ctx, ownerID, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	return doc, chunks, nil
}

func (s *DocumentService) ListDocuments(ctx context.Context, ownerID string) ([]types.DocumentListItem, error) {
	docs, err := s.documents.ListDocuments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	items := make([]types.DocumentListItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, types.DocumentListItem{
			ID:        doc.ID,
			Title:     doc.Title,
			Type:      doc.Type,
			CreatedAt: doc.CreatedAt.UTC().Format(time.RFC3339),
			Metadata:  doc.Metadata,
		})
	}
	return items, nil
}

// DeleteDocument removes the document row, its chunks, its agent links
// and its cache entry, then rebuilds the owner's keyword index.
func (s *DocumentService) DeleteDocument(ctx context.Context, ownerID, id string) error {
	if _, err := s.documents.GetDocument(ctx, ownerID, id); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	if err := s.store.DeleteByDocument(ctx, ownerID, id); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if err := s.documents.DeleteDocument(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.agents.DeleteLinksByDocument(ctx, id); err != nil {
		s.logger.Warn("failed to delete agent links for document",
			zap.String("document_id", id),
			zap.Error(err))
	}
	s.cache.Invalidate(id)

	if err := s.registry.Rebuild(ctx, ownerID); err != nil {
		s.logger.Warn("keyword index rebuild failed after delete",
			zap.String("owner_id", ownerID),
			zap.Error(err))
	}
	return nil
}

// ContextualStats aggregates the owner's processing history.
func (s *DocumentService) ContextualStats(ctx context.Context, ownerID string) (*types.ContextualStats, error) {
	stats, err := s.stats.ListProcessingStats(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	agg := &types.ContextualStats{}
	seen := make(map[string]struct{})
	for _, stat := range stats {
		if _, ok := seen[stat.DocumentID]; !ok {
			seen[stat.DocumentID] = struct{}{}
			agg.TotalDocuments++
		}
		agg.TotalChunks += stat.ProcessedChunks
		agg.TotalTokens += stat.TokensUsed.Total()
		agg.EstimatedCostUSD += stat.CostEstimateUSD
	}
	return agg, nil
}

func (s *DocumentService) recordStat(ctx context.Context, ownerID, documentID string, totalChunks int, outcome *ContextualOutcome, elapsed time.Duration) {
	stat := &types.ProcessingStat{
		DocumentID:            documentID,
		OwnerID:               ownerID,
		TotalChunks:           totalChunks,
		ProcessedChunks:       outcome.Processed,
		FailedChunks:          outcome.Failed,
		TokensUsed:            outcome.Usage,
		ProcessingTimeSeconds: elapsed.Seconds(),
		CostEstimateUSD:       outcome.CostUSD,
	}
	if err := s.stats.RecordProcessingStat(ctx, stat); err != nil {
		s.logger.Warn("failed to record processing stat",
			zap.String("document_id", documentID),
			zap.Error(err))
	}
}

func (s *DocumentService) publish(ownerID, documentID, title, stage string, progress float64, total, processed int, errMsg string) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(ownerID, types.IngestProgress{
		DocumentID:      documentID,
		Title:           title,
		Stage:           stage,
		Progress:        progress,
		TotalChunks:     total,
		ProcessedChunks: processed,
		Error:           errMsg,
	})
}
