package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/okurganov/contextual-rag/internal/core/domain"
)

// aggregateDocuments collapses chunk-level results into parent documents:
// per distinct document the aggregate score is the maximum confidence among
// its surviving chunks. Documents without surviving chunks are absent.
func (uc *QueryUseCase) aggregateDocuments(ctx context.Context, chunks []domain.RerankedChunk) ([]domain.ResultDocument, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	best := make(map[string]float64, len(chunks))
	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		score, seen := best[chunk.DocID]
		if !seen {
			ids = append(ids, chunk.DocID)
		}
		if !seen || chunk.Score > score {
			best[chunk.DocID] = chunk.Score
		}
	}

	docs, err := uc.docs.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve result documents: %w", err)
	}

	out := make([]domain.ResultDocument, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.ResultDocument{
			Document: doc,
			Score:    best[doc.ID],
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
