package cmd

import (
	"context"
	"fmt"

	"rax/app/agent"
	"rax/app/query"
	"rax/config"
	"rax/loader/chunker"
	"rax/loader/service"
	"rax/model"
	"rax/store"
)

func newEmbedder(cfg *config.Config) model.Embedder {
	switch cfg.Embedding.Provider {
	case "ollama":
		return model.NewOllamaEmbedder(cfg.Ollama.URL, cfg.Embedding.Model)
	default:
		return model.NewOpenAIEmbedder(model.OpenAIConfig{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
	}
}

func newSynthesizer(cfg *config.Config) agent.Synthesizer {
	switch cfg.Chat.Provider {
	case "ollama":
		return agent.NewOllamaSynthesizer(cfg.Ollama.URL, cfg.Chat.Model, cfg.Chat.MaxContextTokens)
	default:
		return agent.NewOpenAISynthesizer(agent.OpenAIConfig{
			APIKey:           cfg.OpenAI.APIKey,
			BaseURL:          cfg.OpenAI.BaseURL,
			Model:            cfg.Chat.Model,
			MaxContextTokens: cfg.Chat.MaxContextTokens,
		})
	}
}

// newStore connects to the configured backend. The caller closes it.
func newStore(ctx context.Context, cfg *config.Config) (store.VectorStorer, error) {
	switch cfg.Store.Backend {
	case "neo4j":
		s, err := store.NewNeo4jStore(ctx, store.Neo4jOptions{
			URI:       cfg.Neo4j.URI,
			Username:  cfg.Neo4j.Username,
			Password:  cfg.Neo4j.Password,
			Database:  cfg.Neo4j.Database,
			IndexName: cfg.Store.IndexName,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN, cfg.Store.IndexName)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "chromem":
		s, err := store.NewChromemStore(cfg.Chromem.Path, cfg.Store.IndexName)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func newIngestService(cfg *config.Config, embedder model.Embedder, s store.VectorStorer) *service.Service {
	splitter := chunker.New(embedder, chunker.Config{
		BreakpointPercentile: cfg.Chunk.BreakpointPercentile,
		BufferSize:           cfg.Chunk.BufferSize,
		EmbedBatchSize:       cfg.Embedding.BatchSize,
	})
	return service.New(embedder, splitter, s, service.Config{
		Dimensions:      cfg.Embedding.Dimensions,
		EmbedBatchSize:  cfg.Embedding.BatchSize,
		InsertBatchSize: cfg.Store.InsertBatchSize,
		LockFile:        cfg.Ingest.LockFile,
		WatchDir:        cfg.DataDir,
		ArchiveDir:      cfg.Ingest.ArchiveDir,
		BadDir:          cfg.Ingest.BadDir,
		WatchInterval:   cfg.Ingest.WatchInterval,
		SettleTime:      cfg.Ingest.SettleTime,
	})
}

func newQueryService(cfg *config.Config, embedder model.Embedder, s store.VectorStorer) *query.Service {
	return query.NewService(query.NewRetriever(embedder, s), newSynthesizer(cfg), cfg.TopK)
}
