package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okurganov/contextual-rag/internal/core/domain"
	"github.com/okurganov/contextual-rag/internal/core/ports"
)

type IngestDocumentUseCase struct {
	repo  ports.DocumentRepository
	queue ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:  repo,
		queue: queue,
	}
}

// Submit persists the document row and publishes it for asynchronous
// chunking/indexing. The caller gets the created document back immediately.
func (uc *IngestDocumentUseCase) Submit(ctx context.Context, contents string) (*domain.Document, error) {
	if strings.TrimSpace(contents) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit document", errors.New("contents must be a non-empty string"))
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:       uuid.NewString(),
		Contents: contents,
		Status:   domain.StatusCreated,
		Created:  now,
		Updated:  now,
	}

	if err := uc.repo.Upsert(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	if err := uc.queue.PublishDocumentCreated(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish document created event: %w", err)
	}

	return doc, nil
}
