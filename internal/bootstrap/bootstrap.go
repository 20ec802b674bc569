package bootstrap

import (
	"context"
	"fmt"

	"github.com/okurganov/contextual-rag/internal/config"
	"github.com/okurganov/contextual-rag/internal/core/ports"
	"github.com/okurganov/contextual-rag/internal/core/usecase"
	"github.com/okurganov/contextual-rag/internal/infrastructure/chunking"
	"github.com/okurganov/contextual-rag/internal/infrastructure/llm/ollama"
	"github.com/okurganov/contextual-rag/internal/infrastructure/llm/openai"
	"github.com/okurganov/contextual-rag/internal/infrastructure/queue/nats"
	"github.com/okurganov/contextual-rag/internal/infrastructure/repository/postgres"
	"github.com/okurganov/contextual-rag/internal/infrastructure/rerank/tei"
	"github.com/okurganov/contextual-rag/internal/infrastructure/resilience"
	"github.com/okurganov/contextual-rag/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Docs      ports.DocumentRepository
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	QueryUC   ports.DocumentQueryService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)
	if err := docs.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure documents schema: %w", err)
	}
	chunks := postgres.NewChunkRepository(db)
	if err := chunks.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure chunks schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	completion, rewriter, embedder, err := buildModels(cfg)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	reranker := tei.New(cfg.RerankURL)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	ingestUC := usecase.NewIngestDocumentUseCase(docs, queue)
	processUC := usecase.NewProcessDocumentUseCase(docs, chunks, chunker, completion, embedder, vectorDB, cfg.EmbedBatchSize)
	queryUC := usecase.NewQueryUseCase(rewriter, embedder, vectorDB, chunks, docs, reranker, completion, usecase.QueryConfig{
		LexicalLimit:   cfg.LexicalSearchLimit,
		VectorTopK:     cfg.VectorTopK,
		FusionK:        cfg.FusionRRFK,
		VectorPenalty:  cfg.FusionVectorPenalty,
		MaxCandidates:  cfg.FusionMaxCandidates,
		TopK:           cfg.RAGTopK,
		ScoreThreshold: cfg.RAGScoreThreshold,
	})

	return &App{
		Config: cfg,
		Queue:  queue,
		Docs:   docs,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func buildModels(cfg config.Config) (ports.CompletionModel, ports.RewriteModel, ports.Embedder, error) {
	switch cfg.LLMProvider {
	case "ollama":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel)
		return ollama.NewCompleter(client), ollama.NewRewriter(client), ollama.NewEmbedder(client), nil
	case "openai":
		client := openai.New(openai.Config{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			GenModel:   cfg.OpenAIGenModel,
			EmbedModel: cfg.OpenAIEmbedModel,
		})
		return client, client, client, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
