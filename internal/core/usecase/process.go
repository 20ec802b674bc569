package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okurganov/contextual-rag/internal/core/domain"
	"github.com/okurganov/contextual-rag/internal/core/ports"
)

const defaultEmbedBatchSize = 10

type ProcessDocumentUseCase struct {
	docs       ports.DocumentRepository
	chunks     ports.ChunkRepository
	chunker    ports.Chunker
	completion ports.CompletionModel
	embedder   ports.Embedder
	vectors    ports.VectorIndex
	batchSize  int
}

func NewProcessDocumentUseCase(
	docs ports.DocumentRepository,
	chunks ports.ChunkRepository,
	chunker ports.Chunker,
	completion ports.CompletionModel,
	embedder ports.Embedder,
	vectors ports.VectorIndex,
	batchSize int,
) *ProcessDocumentUseCase {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	return &ProcessDocumentUseCase{
		docs:       docs,
		chunks:     chunks,
		chunker:    chunker,
		completion: completion,
		embedder:   embedder,
		vectors:    vectors,
		batchSize:  batchSize,
	}
}

// ProcessByID runs the ingestion pipeline for a submitted document:
// split into overlapping windows, contextualize each chunk, then embed and
// index in batches. Batches already committed survive a failed sibling;
// the document is marked failed and the error propagates.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.docs.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.runPipeline(ctx, documentID); err != nil {
		if failErr := uc.docs.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.docs.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) runPipeline(ctx context.Context, documentID string) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	raw := uc.chunker.Split(doc.Contents)
	if len(raw) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "split document", errors.New("splitting produced zero chunks"))
	}

	contextualized, err := uc.contextualize(ctx, doc.Contents, raw)
	if err != nil {
		return fmt.Errorf("contextualize chunks: %w", err)
	}

	if err := uc.indexChunks(ctx, doc, contextualized); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}
	return nil
}

// contextualize asks the completion oracle for a short situating summary per
// chunk, concurrently, and prepends it to the chunk text. Output order is
// index-aligned with input order regardless of completion order. A single
// failed call fails the whole stage: dropping context silently would change
// the chunk's downstream identity.
func (uc *ProcessDocumentUseCase) contextualize(ctx context.Context, contents string, raw []string) ([]string, error) {
	out := make([]string, len(raw))
	g, gctx := errgroup.WithContext(ctx)

	for i, chunk := range raw {
		i, chunk := i, chunk
		g.Go(func() error {
			summary, err := uc.completion.Complete(gctx, buildContextPrompt(contents, chunk))
			if err != nil {
				return fmt.Errorf("situate chunk %d: %w", i, err)
			}
			out[i] = summary + "; " + chunk
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// indexChunks partitions the contextualized chunks into fixed-size batches
// and processes the batches concurrently. Within a batch the order is fixed:
// embed, persist chunk rows (ids are assigned here), then upsert vectors
// keyed by the persisted chunk ids.
func (uc *ProcessDocumentUseCase) indexChunks(ctx context.Context, doc *domain.Document, chunks []string) error {
	g, gctx := errgroup.WithContext(ctx)

	for start := 0; start < len(chunks); start += uc.batchSize {
		end := start + uc.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		g.Go(func() error {
			return uc.indexBatch(gctx, doc, batch)
		})
	}

	return g.Wait()
}

func (uc *ProcessDocumentUseCase) indexBatch(ctx context.Context, doc *domain.Document, batch []string) error {
	vectors, err := uc.embedder.Embed(ctx, batch)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(batch) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed batch",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(batch)),
		)
	}

	now := time.Now().UTC()
	records := make([]domain.VectorRecord, 0, len(batch))
	for i, text := range batch {
		chunk := &domain.Chunk{
			ID:      uuid.NewString(),
			DocID:   doc.ID,
			Text:    text,
			Created: now,
		}
		if err := uc.chunks.Upsert(ctx, chunk); err != nil {
			return fmt.Errorf("persist chunk: %w", err)
		}
		records = append(records, domain.VectorRecord{
			ID:        chunk.ID,
			Vector:    vectors[i],
			DocID:     doc.ID,
			Text:      text,
			Timestamp: doc.Created.UnixMilli(),
		})
	}

	if err := uc.vectors.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	return nil
}
