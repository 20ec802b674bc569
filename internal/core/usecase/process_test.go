package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okurganov/contextual-rag/internal/core/domain"
)

type fixedChunker struct {
	chunks []string
}

func (f *fixedChunker) Split(string) []string {
	return f.chunks
}

// slowFirstCompletion answers later for earlier chunks so completion order
// inverts submission order.
type slowFirstCompletion struct {
	mu    sync.Mutex
	total int
	calls int
}

func (f *slowFirstCompletion) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	order := f.calls
	f.calls++
	f.mu.Unlock()

	time.Sleep(time.Duration(f.total-order) * time.Millisecond)

	// Echo the chunk back so the test can match input to output.
	start := strings.Index(prompt, "<chunk>")
	end := strings.Index(prompt, "</chunk>")
	chunk := strings.TrimSpace(prompt[start+len("<chunk>") : end])
	return "ctx(" + chunk + ")", nil
}

func newProcessTestDoc() domain.Document {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Document{
		ID:       "d1",
		Contents: "The sky is blue. Water boils at 100C.",
		Status:   domain.StatusCreated,
		Created:  created,
		Updated:  created,
	}
}

func TestContextualizeKeepsIndexAlignment(t *testing.T) {
	raw := []string{"chunk-0", "chunk-1", "chunk-2", "chunk-3"}
	uc := NewProcessDocumentUseCase(
		newDocRepoFake(), newChunkRepoFake(), &fixedChunker{}, &slowFirstCompletion{total: len(raw)},
		&embedderFake{}, &vectorIndexFake{}, 10,
	)

	out, err := uc.contextualize(context.Background(), "doc", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(raw) {
		t.Fatalf("expected %d outputs, got %d", len(raw), len(out))
	}
	for i, chunk := range raw {
		want := "ctx(" + chunk + "); " + chunk
		if out[i] != want {
			t.Fatalf("output %d misaligned: got %q, want %q", i, out[i], want)
		}
	}
}

func TestProcessByIDIndexesChunksInBatches(t *testing.T) {
	doc := newProcessTestDoc()
	docs := newDocRepoFake(doc)
	chunks := newChunkRepoFake()
	embedder := &embedderFake{}
	vectors := &vectorIndexFake{}

	raw := make([]string, 25)
	for i := range raw {
		raw[i] = fmt.Sprintf("chunk-%d", i)
	}

	uc := NewProcessDocumentUseCase(
		docs, chunks, &fixedChunker{chunks: raw},
		&completionFake{fn: func(string) (string, error) { return "ctx", nil }},
		embedder, vectors, 10,
	)

	if err := uc.ProcessByID(context.Background(), doc.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(embedder.batches) != 3 {
		t.Fatalf("expected 3 embedding batches for 25 chunks, got %d", len(embedder.batches))
	}
	sizes := map[int]int{}
	for _, batch := range embedder.batches {
		sizes[len(batch)]++
	}
	if sizes[10] != 2 || sizes[5] != 1 {
		t.Fatalf("expected batch sizes 10,10,5, got %v", sizes)
	}

	if len(chunks.stored) != 25 {
		t.Fatalf("expected 25 chunk rows, got %d", len(chunks.stored))
	}
	if len(vectors.upserted) != 25 {
		t.Fatalf("expected 25 vector records, got %d", len(vectors.upserted))
	}
	for _, record := range vectors.upserted {
		chunk, ok := chunks.stored[record.ID]
		if !ok {
			t.Fatalf("vector record %s has no matching chunk row", record.ID)
		}
		if record.DocID != doc.ID || chunk.DocID != doc.ID {
			t.Fatalf("record/chunk doc id mismatch for %s", record.ID)
		}
		if record.Text != chunk.Text {
			t.Fatalf("record/chunk text mismatch for %s", record.ID)
		}
		if record.Timestamp != doc.Created.UnixMilli() {
			t.Fatalf("expected timestamp %d, got %d", doc.Created.UnixMilli(), record.Timestamp)
		}
	}

	final, err := docs.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.Status != domain.StatusReady {
		t.Fatalf("expected status ready, got %s", final.Status)
	}
}

func TestProcessByIDContextualizeFailurePropagates(t *testing.T) {
	doc := newProcessTestDoc()
	docs := newDocRepoFake(doc)

	uc := NewProcessDocumentUseCase(
		docs, newChunkRepoFake(), &fixedChunker{chunks: []string{"a", "b"}},
		&completionFake{fn: func(string) (string, error) { return "", errors.New("completion down") }},
		&embedderFake{}, &vectorIndexFake{}, 10,
	)

	err := uc.ProcessByID(context.Background(), doc.ID)
	if err == nil || !strings.Contains(err.Error(), "completion down") {
		t.Fatalf("expected contextualization failure to propagate, got %v", err)
	}

	final, _ := docs.GetByID(context.Background(), doc.ID)
	if final.Status != domain.StatusFailed {
		t.Fatalf("expected status failed, got %s", final.Status)
	}
	if !strings.Contains(final.Error, "completion down") {
		t.Fatalf("expected failure reason recorded, got %q", final.Error)
	}
}

func TestProcessByIDVectorFailureKeepsCommittedBatches(t *testing.T) {
	doc := newProcessTestDoc()
	docs := newDocRepoFake(doc)
	chunks := newChunkRepoFake()
	vectors := &vectorIndexFake{writeErr: errors.New("vector index down")}

	uc := NewProcessDocumentUseCase(
		docs, chunks, &fixedChunker{chunks: []string{"a", "b", "c"}},
		&completionFake{fn: func(string) (string, error) { return "ctx", nil }},
		&embedderFake{}, vectors, 2,
	)

	err := uc.ProcessByID(context.Background(), doc.ID)
	if err == nil {
		t.Fatalf("expected vector upsert failure to propagate")
	}
	// No rollback: chunk rows written before the failure stay behind.
	if len(chunks.stored) == 0 {
		t.Fatalf("expected committed chunk rows to remain after failure")
	}
}

func TestProcessByIDEmbeddingMismatchRejected(t *testing.T) {
	doc := newProcessTestDoc()
	docs := newDocRepoFake(doc)

	uc := NewProcessDocumentUseCase(
		docs, newChunkRepoFake(), &fixedChunker{chunks: []string{"a", "b"}},
		&completionFake{fn: func(string) (string, error) { return "ctx", nil }},
		&misalignedEmbedder{}, &vectorIndexFake{}, 10,
	)

	err := uc.ProcessByID(context.Background(), doc.ID)
	if err == nil || !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input error for misaligned embeddings, got %v", err)
	}
}

type misalignedEmbedder struct{}

func (f *misalignedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)+1), nil
}

func (f *misalignedEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{0.1}, nil
}

func TestProcessByIDZeroChunksRejected(t *testing.T) {
	doc := newProcessTestDoc()
	docs := newDocRepoFake(doc)

	uc := NewProcessDocumentUseCase(
		docs, newChunkRepoFake(), &fixedChunker{chunks: nil},
		&completionFake{}, &embedderFake{}, &vectorIndexFake{}, 10,
	)

	err := uc.ProcessByID(context.Background(), doc.ID)
	if err == nil || !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input error for zero chunks, got %v", err)
	}
}
