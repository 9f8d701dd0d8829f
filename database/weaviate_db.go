package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"

	"github.com/aigroupchat/voicechat-be/config"
	"github.com/aigroupchat/voicechat-be/types"
)

const BATCH_SIZE = 200

// scanPageSize bounds the GraphQL page used when scanning an owner's
// chunks for index rebuilds.
const scanPageSize = 1000

var (
	SECTION_CLASS        = "DocumentSection"
	SECTION_CLASS_OBJECT = &models.Class{
		Class: SECTION_CLASS,
		Properties: []*models.Property{
			{Name: "ownerId", DataType: []string{"text"}},
			{Name: "documentId", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "contextualContent", DataType: []string{"text"}},
			{Name: "isContextualized", DataType: []string{"boolean"}},
			{Name: "chunkIndex", DataType: []string{"int"}},
		},
		// Vectors are computed by the embedder, never by weaviate modules.
		Vectorizer:      "none",
		VectorIndexType: "hnsw",
	}
)

type WeaviateStore struct {
	client *weaviate.Client
	logger *zap.Logger
}

func NewWeaviateStore(cfg config.WeaviateConfig, logger *zap.Logger) (*WeaviateStore, error) {
	var scheme string
	if strings.Contains(cfg.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(cfg.Host, scheme+"://")
	clientCfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		clientCfg.AuthConfig = auth.ApiKey{
			Value: cfg.APIKey,
		}
		clientCfg.Headers = map[string]string{
			"X-Weaviate-Api-Key":     cfg.APIKey,
			"X-Weaviate-Cluster-Url": fmt.Sprintf("%s://%s", scheme, host),
		}
	}
	client, err := weaviate.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	schema, err := client.Schema().Getter().Do(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}

	hasSectionClass := false
	for _, class := range schema.Classes {
		if class.Class == SECTION_CLASS {
			hasSectionClass = true
			break
		}
	}
	if !hasSectionClass {
		err = client.Schema().ClassCreator().WithClass(SECTION_CLASS_OBJECT).Do(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to create DocumentSection class: %w", err)
		}
	}
	return &WeaviateStore{
		client: client,
		logger: logger,
	}, nil
}

func (s *WeaviateStore) ReInit() error {
	err := s.client.Schema().ClassDeleter().WithClassName(SECTION_CLASS).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to delete DocumentSection class: %w", err)
	}

	err = s.client.Schema().ClassCreator().WithClass(SECTION_CLASS_OBJECT).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to create DocumentSection class: %w", err)
	}
	return nil
}

// BatchInsertChunks writes all chunks of one document. Callers treat a
// partial failure as total and compensate with DeleteByDocument.
func (s *WeaviateStore) BatchInsertChunks(ctx context.Context, ownerID string, chunks []types.Chunk) error {
	total := len(chunks)
	for i := 0; i < total; i += BATCH_SIZE {
		end := i + BATCH_SIZE
		if end > total {
			end = total
		}

		batcher := s.client.Batch().ObjectsBatcher()
		for j := i; j < end; j++ {
			c := chunks[j]
			properties := map[string]interface{}{
				"ownerId":           ownerID,
				"documentId":        c.DocumentID,
				"content":           c.Content,
				"contextualContent": c.ContextualContent,
				"isContextualized":  c.IsContextualized,
				"chunkIndex":        c.ChunkIndex,
			}
			batcher = batcher.WithObjects(&models.Object{
				ID:         strfmt.UUID(c.ID),
				Class:      SECTION_CLASS,
				Properties: properties,
				Vector:     c.Embedding,
			})
		}

		resp, err := batcher.Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %w", i, end, err)
		}
		for _, obj := range resp {
			if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
				return fmt.Errorf("failed to insert chunk %s: %s", obj.ID, obj.Result.Errors.Error[0].Message)
			}
		}

		s.logger.Debug("inserted chunk batch",
			zap.String("owner_id", ownerID),
			zap.Int("from", i),
			zap.Int("to", end),
			zap.Int("total", total))
	}

	return nil
}

// VectorSearch returns chunks whose cosine similarity to vector exceeds
// threshold, ordered by similarity desc. Contextualized chunks surface
// their enriched content.
func (s *WeaviateStore) VectorSearch(ctx context.Context, ownerID string, vector []float32, threshold float64, limit int, allowedDocIDs []string) ([]types.SearchResult, error) {
	fields := []graphql.Field{
		{Name: "documentId"},
		{Name: "content"},
		{Name: "contextualContent"},
		{Name: "isContextualized"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}, {Name: "id"}}},
	}

	// Cosine distance is 1 - similarity.
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector).
		WithDistance(float32(1.0 - threshold))

	where := ownerFilter(ownerID, allowedDocIDs)

	getBuilder := s.client.GraphQL().Get().
		WithClassName(SECTION_CLASS).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithWhere(where)
	if limit > 0 {
		getBuilder = getBuilder.WithLimit(limit)
	}

	result, err := getBuilder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if result.Errors != nil {
		return nil, fmt.Errorf("vector search failed: %v", result.Errors[0].Message)
	}

	var hits []types.SearchResult
	if data, ok := result.Data["Get"].(map[string]interface{})[SECTION_CLASS].([]interface{}); ok {
		for _, item := range data {
			section, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			hit := types.SearchResult{
				DocumentID: stringProp(section, "documentId"),
				Content:    sectionContent(section),
			}
			if additional, ok := section["_additional"].(map[string]interface{}); ok {
				if id, ok := additional["id"].(string); ok {
					hit.ChunkID = id
				}
				if distance, ok := additional["distance"].(float64); ok {
					hit.Score = 1.0 - distance
				}
			}
			hits = append(hits, hit)
		}
	}

	return hits, nil
}

// GetAllChunks scans every chunk of one owner, paging by chunkIndex-free
// offset. Used for BM25 rebuilds and is never on the query path.
func (s *WeaviateStore) GetAllChunks(ctx context.Context, ownerID string) ([]types.Chunk, error) {
	return s.scanChunks(ctx, ownerFilter(ownerID, nil))
}

func (s *WeaviateStore) GetChunksByDocument(ctx context.Context, ownerID, documentID string) ([]types.Chunk, error) {
	return s.scanChunks(ctx, ownerFilter(ownerID, []string{documentID}))
}

func (s *WeaviateStore) scanChunks(ctx context.Context, where *filters.WhereBuilder) ([]types.Chunk, error) {
	fields := []graphql.Field{
		{Name: "documentId"},
		{Name: "content"},
		{Name: "contextualContent"},
		{Name: "isContextualized"},
		{Name: "chunkIndex"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}},
	}

	var chunks []types.Chunk
	for offset := 0; ; offset += scanPageSize {
		result, err := s.client.GraphQL().Get().
			WithClassName(SECTION_CLASS).
			WithFields(fields...).
			WithWhere(where).
			WithLimit(scanPageSize).
			WithOffset(offset).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("chunk scan failed: %w", err)
		}
		if result.Errors != nil {
			return nil, fmt.Errorf("chunk scan failed: %v", result.Errors[0].Message)
		}

		data, ok := result.Data["Get"].(map[string]interface{})[SECTION_CLASS].([]interface{})
		if !ok || len(data) == 0 {
			break
		}
		for _, item := range data {
			section, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			chunk := types.Chunk{
				DocumentID:        stringProp(section, "documentId"),
				Content:           stringProp(section, "content"),
				ContextualContent: stringProp(section, "contextualContent"),
			}
			if v, ok := section["isContextualized"].(bool); ok {
				chunk.IsContextualized = v
			}
			if v, ok := section["chunkIndex"].(float64); ok {
				chunk.ChunkIndex = int(v)
			}
			if additional, ok := section["_additional"].(map[string]interface{}); ok {
				if id, ok := additional["id"].(string); ok {
					chunk.ID = id
				}
			}
			chunks = append(chunks, chunk)
		}
		if len(data) < scanPageSize {
			break
		}
	}

	return chunks, nil
}

func (s *WeaviateStore) DeleteByDocument(ctx context.Context, ownerID, documentID string) error {
	where := ownerFilter(ownerID, []string{documentID})
	resp, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(SECTION_CLASS).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete chunks of document %s: %w", documentID, err)
	}
	if resp != nil && resp.Results != nil {
		s.logger.Debug("deleted document chunks",
			zap.String("document_id", documentID),
			zap.Int64("matched", resp.Results.Matches))
	}
	return nil
}

// sectionContent picks the text a hit surfaces: the enriched form when
// the chunk was contextualized, the raw chunk otherwise.
func sectionContent(section map[string]interface{}) string {
	if v, ok := section["isContextualized"].(bool); ok && v {
		if contextual := stringProp(section, "contextualContent"); contextual != "" {
			return contextual
		}
	}
	return stringProp(section, "content")
}

func stringProp(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func ownerFilter(ownerID string, allowedDocIDs []string) *filters.WhereBuilder {
	whereFilter := filters.Where().
		WithPath([]string{"ownerId"}).
		WithOperator(filters.Equal).
		WithValueString(ownerID)

	if len(allowedDocIDs) > 0 {
		docFilter := filters.Where().
			WithPath([]string{"documentId"}).
			WithOperator(filters.ContainsAny).
			WithValueString(allowedDocIDs...)
		whereFilter = filters.Where().
			WithOperator(filters.And).
			WithOperands([]*filters.WhereBuilder{whereFilter, docFilter})
	}

	return whereFilter
}
