/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/aigroupchat/voicechat-be/config"
	"github.com/aigroupchat/voicechat-be/database"
	"github.com/aigroupchat/voicechat-be/index"
	"github.com/aigroupchat/voicechat-be/repository"
	"github.com/aigroupchat/voicechat-be/service"
)

// application bundles every wired service so the server and the CLI
// commands share one bootstrap path.
type application struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *database.WeaviateStore
	documents *service.DocumentService
	agents    *service.AgentService
	retrieval *service.RetrievalService
	context   *service.ContextService
	hub       *service.ProgressHub
	reranker  *service.RerankerService
	closers   []func()
}

func newApplication(cfg *config.Config) (*application, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	app := &application{cfg: cfg, logger: logger}
	app.closers = append(app.closers, func() { logger.Sync() })

	mongoClient, err := database.NewMongoClient(cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	app.closers = append(app.closers, func() {
		mongoClient.Disconnect(context.Background())
	})
	mongoDb := mongoClient.Database(cfg.MongoDB)

	store, err := database.NewWeaviateStore(cfg.Weaviate, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to weaviate: %w", err)
	}
	app.store = store

	documentRepo := repository.NewDocumentRepo(mongoDb.Collection("documents"))
	agentRepo := repository.NewAgentRepo(mongoDb.Collection("agents"), mongoDb.Collection("agent_documents"))
	statsRepo := repository.NewStatsRepo(mongoDb.Collection("processing_stats"))

	registry := index.NewRegistry(store, logger)
	cache := service.NewMetadataCache()
	parser := service.NewParserService(logger)
	chunker := service.NewChunkerService(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	embedder := service.NewEmbedderService(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel, logger)

	summarizer, err := app.buildSummarizer()
	if err != nil {
		return nil, err
	}
	contextual := service.NewContextualService(summarizer, cfg.Contextual, logger)

	app.hub = service.NewProgressHub(logger)
	app.agents = service.NewAgentService(agentRepo, documentRepo, logger)
	app.documents = service.NewDocumentService(
		documentRepo, agentRepo, statsRepo, store,
		parser, chunker, contextual, embedder,
		registry, cache, app.hub, logger)

	var reranker service.Reranker
	if cfg.Retrieval.UseRerank && cfg.Reranker.Endpoint != "" {
		app.reranker = service.NewRerankerService(cfg.Reranker.Endpoint, cfg.Reranker.Workers, logger)
		reranker = app.reranker
	}
	app.retrieval = service.NewRetrievalService(
		embedder, store, registry, reranker, app.agents,
		cfg.Retrieval, logger)
	app.context = service.NewContextService(app.retrieval, cache, documentRepo, logger)

	return app, nil
}

func (a *application) buildSummarizer() (service.Summarizer, error) {
	if !a.cfg.Contextual.Enabled {
		return nil, nil
	}
	switch a.cfg.Contextual.Backend {
	case "gemini":
		summarizer, err := service.NewGeminiSummarizer(a.cfg.Gemini.APIKey, a.cfg.Gemini.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to build gemini summarizer: %w", err)
		}
		a.closers = append(a.closers, func() { summarizer.Close() })
		return summarizer, nil
	case "openai":
		return service.NewOpenAISummarizer(a.cfg.OpenAI.BaseURL, a.cfg.OpenAI.APIKey, a.cfg.OpenAI.SummarizerModel), nil
	default:
		return nil, fmt.Errorf("unknown contextual backend %q", a.cfg.Contextual.Backend)
	}
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func loadAppConfig() *config.Config {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}
