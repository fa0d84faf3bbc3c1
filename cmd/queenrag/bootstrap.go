package main

import (
	"context"
	"fmt"
	"os"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/rs/zerolog"

	"github.com/klarifai/queen-rag/internal/config"
	"github.com/klarifai/queen-rag/internal/docstore"
	"github.com/klarifai/queen-rag/internal/domain"
	"github.com/klarifai/queen-rag/internal/embedding"
	"github.com/klarifai/queen-rag/internal/extract"
	"github.com/klarifai/queen-rag/internal/index"
	"github.com/klarifai/queen-rag/internal/llm"
	"github.com/klarifai/queen-rag/internal/logger"
)

// stack holds the wired-up service dependencies shared by the serve and
// reindex commands.
type stack struct {
	cfg      *config.Config
	log      zerolog.Logger
	chroma   chromago.Client
	embedder embedding.Embedder
	index    *index.Chroma
	store    *docstore.Store
}

// buildStack loads configuration and connects the storage side of the
// service: Chroma collection, embedder, vector index and document store.
// The caller owns Close.
func buildStack(ctx context.Context) (*stack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	if key := os.Getenv("UNIDOC_LICENSE_KEY"); key != "" {
		if err := extract.SetLicense(key); err != nil {
			log.Warn().Err(err).Msg("could not apply unidoc license, PDF extraction disabled")
		}
	}

	chromaClient, err := chromago.NewHTTPClient(chromago.WithBaseURL(cfg.Chroma.URL))
	if err != nil {
		return nil, fmt.Errorf("create chroma client: %w", err)
	}

	collection, err := chromaClient.GetOrCreateCollection(
		ctx,
		cfg.Chroma.Collection,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "Queen-RAG knowledge base"),
				chromago.NewStringAttribute("created_by", "queenrag"),
			),
		),
	)
	if err != nil {
		chromaClient.Close()
		return nil, fmt.Errorf("get or create collection %q: %w", cfg.Chroma.Collection, err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		chromaClient.Close()
		return nil, err
	}

	idx := index.New(collection, embedder, log)

	store, err := docstore.New(cfg.Storage.DocumentsDir, idx, nil, cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap, log)
	if err != nil {
		chromaClient.Close()
		return nil, err
	}

	return &stack{
		cfg:      cfg,
		log:      log,
		chroma:   chromaClient,
		embedder: embedder,
		index:    idx,
		store:    store,
	}, nil
}

func (s *stack) Close() {
	if err := s.chroma.Close(); err != nil {
		s.log.Warn().Err(err).Msg("failed to close chroma client")
	}
}

func buildEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, &domain.ConfigurationError{Reason: "OPENAI_API_KEY is not set"}
		}
		return embedding.NewOpenAI(key, cfg.Embedding.OpenAIModel, cfg.Embedding.OpenAIBase), nil
	case "ollama":
		return embedding.NewOllama(cfg.Embedding.OllamaURL, cfg.Embedding.OllamaModel), nil
	default:
		return nil, &domain.ConfigurationError{Reason: "unknown embedding provider " + cfg.Embedding.Provider}
	}
}

func buildProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, &domain.ConfigurationError{Reason: "OPENAI_API_KEY is not set"}
		}
		return llm.NewOpenAI(key, cfg.LLM.OpenAIModel, "")
	case "gemini":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return nil, &domain.ConfigurationError{Reason: "GEMINI_API_KEY is not set"}
		}
		return llm.NewGemini(ctx, key, cfg.LLM.GeminiModel)
	default:
		return nil, &domain.ConfigurationError{Reason: "unknown llm provider " + cfg.LLM.Provider}
	}
}
