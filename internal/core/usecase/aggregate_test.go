package usecase

import (
	"context"
	"testing"

	"github.com/okurganov/contextual-rag/internal/core/domain"
)

func newAggregateTestUseCase(docs *docRepoFake) *QueryUseCase {
	return NewQueryUseCase(
		&rewriteModelFake{}, &embedderFake{}, &vectorIndexFake{}, newChunkRepoFake(),
		docs, &rerankModelFake{}, &completionFake{}, QueryConfig{},
	)
}

func TestAggregateDocumentsTakesMaxChunkScore(t *testing.T) {
	docs := newDocRepoFake(domain.Document{ID: "d1", Contents: "doc"})
	uc := newAggregateTestUseCase(docs)

	out, err := uc.aggregateDocuments(context.Background(), []domain.RerankedChunk{
		{ID: "c1", DocID: "d1", Score: 0.7},
		{ID: "c2", DocID: "d1", Score: 0.9},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 document, got %d", len(out))
	}
	if out[0].Score != 0.9 {
		t.Fatalf("expected max chunk score 0.9, got %f", out[0].Score)
	}
}

func TestAggregateDocumentsSortsDescending(t *testing.T) {
	docs := newDocRepoFake(
		domain.Document{ID: "d1", Contents: "one"},
		domain.Document{ID: "d2", Contents: "two"},
	)
	uc := newAggregateTestUseCase(docs)

	out, err := uc.aggregateDocuments(context.Background(), []domain.RerankedChunk{
		{ID: "c1", DocID: "d1", Score: 0.6},
		{ID: "c2", DocID: "d2", Score: 0.8},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0].ID != "d2" || out[1].ID != "d1" {
		t.Fatalf("expected documents sorted by aggregate score, got %+v", out)
	}
}

func TestAggregateDocumentsEmptyInput(t *testing.T) {
	uc := newAggregateTestUseCase(newDocRepoFake())

	out, err := uc.aggregateDocuments(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no documents, got %d", len(out))
	}
}
