package ports

import (
	"context"

	"github.com/okurganov/contextual-rag/internal/core/domain"
)

// DocumentRepository persists document rows with idempotent upsert semantics.
type DocumentRepository interface {
	Upsert(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
}

// ChunkRepository persists chunk rows and serves the lexical/full-text index.
type ChunkRepository interface {
	Upsert(ctx context.Context, chunk *domain.Chunk) error
	Get(ctx context.Context, docID, id string) (*domain.Chunk, error)
	SearchLexical(ctx context.Context, term string, timeframe domain.Timeframe, limit int) ([]domain.LexicalHit, error)
}

// MessageQueue publishes/consumes document-created events between api and worker.
type MessageQueue interface {
	PublishDocumentCreated(ctx context.Context, documentID string) error
	SubscribeDocumentCreated(ctx context.Context, handler func(context.Context, string) error) error
}

// Chunker splits raw document text into overlapping windows.
type Chunker interface {
	Split(text string) []string
}

// CompletionModel is the completion oracle: one prompt in, one text out.
type CompletionModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RewriteModel is the structured-generation oracle constrained to the
// Rewrite shape. Errors are recovered by the caller, never surfaced.
type RewriteModel interface {
	RewriteQuery(ctx context.Context, prompt string) (domain.Rewrite, error)
}

// Embedder builds vectors for chunk batches and query text, index-aligned
// with its input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// RerankModel is the cross-encoder relevance oracle. Returned scores refer
// back to the input slice through explicit indices; input order is not
// assumed to be preserved.
type RerankModel interface {
	Rerank(ctx context.Context, query string, texts []string) ([]domain.RerankScore, error)
}

// VectorIndex stores chunk vectors with metadata and serves similarity
// queries with a range filter on the indexed timestamp.
type VectorIndex interface {
	Upsert(ctx context.Context, records []domain.VectorRecord) error
	Query(ctx context.Context, vector []float32, topK int, timeframe domain.Timeframe) ([]domain.VectorHit, error)
}
