package ports

import (
	"context"

	"github.com/okurganov/contextual-rag/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document submission.
type DocumentIngestor interface {
	Submit(ctx context.Context, contents string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous chunking,
// contextualization and indexing of a submitted document.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentQueryService is the inbound contract for hybrid retrieval.
type DocumentQueryService interface {
	Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)
}
