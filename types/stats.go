package types

import "time"

// TokenUsage tracks the four prompt-cache counters of one or more
// summarizer calls.
type TokenUsage struct {
	Input         int `bson:"input" json:"input"`
	Output        int `bson:"output" json:"output"`
	CacheCreation int `bson:"cache_creation" json:"cache_creation"`
	CacheRead     int `bson:"cache_read" json:"cache_read"`
}

// Add accumulates another usage into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.Input += other.Input
	u.Output += other.Output
	u.CacheCreation += other.CacheCreation
	u.CacheRead += other.CacheRead
}

// Total returns the sum of all four counters.
func (u TokenUsage) Total() int {
	return u.Input + u.Output + u.CacheCreation + u.CacheRead
}

// ProcessingStat records one ingest's contextualization cost. Append-only.
type ProcessingStat struct {
	ID                    string     `bson:"_id" json:"id"`
	DocumentID            string     `bson:"document_id" json:"document_id"`
	OwnerID               string     `bson:"owner_id" json:"owner_id"`
	TotalChunks           int        `bson:"total_chunks" json:"total_chunks"`
	ProcessedChunks       int        `bson:"processed_chunks" json:"processed_chunks"`
	FailedChunks          int        `bson:"failed_chunks" json:"failed_chunks"`
	TokensUsed            TokenUsage `bson:"tokens_used" json:"tokens_used"`
	ProcessingTimeSeconds float64    `bson:"processing_time_seconds" json:"processing_time_seconds"`
	CostEstimateUSD       float64    `bson:"cost_estimate_usd" json:"cost_estimate_usd"`
	CreatedAt             time.Time  `bson:"created_at" json:"created_at"`
}

// ContextualStats is the aggregate returned by the stats endpoint.
type ContextualStats struct {
	TotalDocuments   int     `json:"total_documents"`
	TotalChunks      int     `json:"total_chunks"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}
