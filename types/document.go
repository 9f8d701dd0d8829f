package types

import "time"

const (
	DocumentTypePDF  = "pdf"
	DocumentTypeText = "text"
)

// Document is one uploaded source. Chunks live in the vector store,
// the document row itself lives in mongo.
type Document struct {
	ID        string                 `bson:"_id" json:"id"`
	OwnerID   string                 `bson:"owner_id" json:"owner_id"`
	Title     string                 `bson:"title" json:"title"`
	Type      string                 `bson:"type" json:"type"`
	Metadata  map[string]interface{} `bson:"metadata" json:"metadata"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time              `bson:"updated_at" json:"updated_at"`
}

// Chunk is one retrievable unit of a document as produced by the chunker
// and enriched by the contextualizer before it is embedded and stored.
type Chunk struct {
	ID                string    `json:"id"`
	DocumentID        string    `json:"document_id"`
	Content           string    `json:"content"`
	ContextualContent string    `json:"contextual_content,omitempty"`
	IsContextualized  bool      `json:"is_contextualized"`
	ChunkIndex        int       `json:"chunk_index"`
	Embedding         []float32 `json:"-"`
}

// EmbeddingText returns the text a chunk is indexed under. Contextualized
// chunks are indexed by their enriched form.
func (c *Chunk) EmbeddingText() string {
	if c.IsContextualized && c.ContextualContent != "" {
		return c.ContextualContent
	}
	return c.Content
}

// SearchResult is a single retrieval hit, ordered high-to-low by score.
type SearchResult struct {
	ChunkID     string   `json:"chunk_id"`
	DocumentID  string   `json:"document_id"`
	Content     string   `json:"content"`
	Score       float64  `json:"score"`
	RerankScore *float64 `json:"rerank_score,omitempty"`
}

// DocumentMeta is the cached subset of a document used when formatting
// context blocks.
type DocumentMeta struct {
	Title string
	Type  string
}
