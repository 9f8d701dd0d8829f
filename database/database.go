package database

import (
	"context"

	"github.com/aigroupchat/voicechat-be/types"
)

// ChunkStore is the vector-side storage of document sections. Document
// rows and agent links live in mongo, behind the repository package.
type ChunkStore interface {
	BatchInsertChunks(ctx context.Context, ownerID string, chunks []types.Chunk) error
	VectorSearch(ctx context.Context, ownerID string, vector []float32, threshold float64, limit int, allowedDocIDs []string) ([]types.SearchResult, error)
	GetAllChunks(ctx context.Context, ownerID string) ([]types.Chunk, error)
	GetChunksByDocument(ctx context.Context, ownerID, documentID string) ([]types.Chunk, error)
	DeleteByDocument(ctx context.Context, ownerID, documentID string) error
}
