package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/okurganov/contextual-rag/internal/core/domain"
)

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentCreated(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentCreated(context.Context, func(context.Context, string) error) error {
	return nil
}

func TestSubmitRejectsEmptyContents(t *testing.T) {
	uc := NewIngestDocumentUseCase(newDocRepoFake(), &queueFake{})

	_, err := uc.Submit(context.Background(), "  \n ")
	if err == nil {
		t.Fatalf("expected error for empty contents")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSubmitCreatesDocumentAndPublishes(t *testing.T) {
	docs := newDocRepoFake()
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(docs, queue)

	doc, err := uc.Submit(context.Background(), "The sky is blue.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("expected generated document id")
	}
	if doc.Status != domain.StatusCreated {
		t.Fatalf("expected status created, got %s", doc.Status)
	}
	if doc.Created.IsZero() || !doc.Created.Equal(doc.Updated) {
		t.Fatalf("expected created == updated on creation")
	}
	stored, err := docs.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("expected document persisted: %v", err)
	}
	if stored.Contents != "The sky is blue." {
		t.Fatalf("unexpected stored contents %q", stored.Contents)
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("expected document id published, got %v", queue.published)
	}
}

func TestSubmitPublishFailurePropagates(t *testing.T) {
	uc := NewIngestDocumentUseCase(newDocRepoFake(), &queueFake{err: errors.New("nats down")})

	_, err := uc.Submit(context.Background(), "contents")
	if err == nil {
		t.Fatalf("expected publish failure to propagate")
	}
}
