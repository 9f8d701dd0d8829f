package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port       string           `mapstructure:"port"`
	UploadDir  string           `mapstructure:"upload_dir"`
	MongoURI   string           `mapstructure:"MONGODB_URI"`
	MongoDB    string           `mapstructure:"mongo_db"`
	Weaviate   WeaviateConfig   `mapstructure:"weaviate"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Reranker   RerankerConfig   `mapstructure:"reranker"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Contextual ContextualConfig `mapstructure:"contextual"`
	Chunker    ChunkerConfig    `mapstructure:"chunker"`
}

type WeaviateConfig struct {
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"WEAVIATE_APIKEY"`
}

type OpenAIConfig struct {
	APIKey          string `mapstructure:"OPENAI_API_KEY"`
	BaseURL         string `mapstructure:"base_url"`
	EmbeddingModel  string `mapstructure:"embedding_model"`
	SummarizerModel string `mapstructure:"summarizer_model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"GEMINI_API_KEY"`
	Model  string `mapstructure:"model"`
}

type RerankerConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Workers  int    `mapstructure:"workers"`
}

type RetrievalConfig struct {
	UseHybridSearch     bool    `mapstructure:"USE_HYBRID_SEARCH"`
	UseRerank           bool    `mapstructure:"USE_RERANK"`
	TopK                int     `mapstructure:"top_k"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

type ContextualConfig struct {
	Enabled              bool   `mapstructure:"ENABLE_CONTEXTUAL_RETRIEVAL"`
	Backend              string `mapstructure:"backend"`
	UseBatchAPI          bool   `mapstructure:"CONTEXTUAL_USE_BATCH_API"`
	BatchThreshold       int    `mapstructure:"CONTEXTUAL_BATCH_THRESHOLD"`
	MaxDailyRequests     int    `mapstructure:"MAX_DAILY_CONTEXTUAL_REQUESTS"`
	MaxTokensPerDocument int    `mapstructure:"MAX_CONTEXTUAL_TOKENS_PER_DOCUMENT"`
	RequestTimeoutSecs   int    `mapstructure:"request_timeout_secs"`
}

type ChunkerConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
	Overlap   int `mapstructure:"overlap"`
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Secrets and feature flags come from the environment. A missing flag
	// means the feature is off.
	v.BindEnv("MONGODB_URI")
	v.BindEnv("weaviate.WEAVIATE_APIKEY", "WEAVIATE_APIKEY")
	v.BindEnv("openai.OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("gemini.GEMINI_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("retrieval.USE_HYBRID_SEARCH", "USE_HYBRID_SEARCH")
	v.BindEnv("retrieval.USE_RERANK", "USE_RERANK")
	v.BindEnv("contextual.ENABLE_CONTEXTUAL_RETRIEVAL", "ENABLE_CONTEXTUAL_RETRIEVAL")
	v.BindEnv("contextual.CONTEXTUAL_USE_BATCH_API", "CONTEXTUAL_USE_BATCH_API")
	v.BindEnv("contextual.CONTEXTUAL_BATCH_THRESHOLD", "CONTEXTUAL_BATCH_THRESHOLD")
	v.BindEnv("contextual.MAX_DAILY_CONTEXTUAL_REQUESTS", "MAX_DAILY_CONTEXTUAL_REQUESTS")
	v.BindEnv("contextual.MAX_CONTEXTUAL_TOKENS_PER_DOCUMENT", "MAX_CONTEXTUAL_TOKENS_PER_DOCUMENT")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8000"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.MongoDB == "" {
		c.MongoDB = "voicechat"
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if c.OpenAI.SummarizerModel == "" {
		c.OpenAI.SummarizerModel = "gpt-4o-mini"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-1.5-flash"
	}
	if c.Reranker.Workers == 0 {
		c.Reranker.Workers = 4
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.SimilarityThreshold == 0 {
		c.Retrieval.SimilarityThreshold = 0.3
	}
	if c.Contextual.Backend == "" {
		c.Contextual.Backend = "openai"
	}
	if c.Contextual.BatchThreshold == 0 {
		c.Contextual.BatchThreshold = 10
	}
	if c.Contextual.RequestTimeoutSecs == 0 {
		c.Contextual.RequestTimeoutSecs = 30
	}
	if c.Chunker.ChunkSize == 0 {
		c.Chunker.ChunkSize = 800
	}
	if c.Chunker.Overlap == 0 {
		c.Chunker.Overlap = 80
	}
}
