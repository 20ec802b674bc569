package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okurganov/contextual-rag/internal/core/domain"
)

// sigmoidK controls the steepness of the raw-score-to-confidence mapping.
const sigmoidK = 0.4

func sigmoid(score, k float64) float64 {
	return 1.0 / (1.0 + math.Exp(-score/k))
}

// rerank sends the fused candidate texts plus the original prompt to the
// cross-encoder oracle, converts raw scores to bounded confidences, applies
// the score threshold and top-K cutoffs, and reorders the candidates by the
// returned indices. Candidates that arrived without inline text are resolved
// by a point lookup against chunk storage.
func (uc *QueryUseCase) rerank(
	ctx context.Context,
	prompt string,
	fused []domain.FusedCandidate,
	threshold float64,
	topK int,
) ([]domain.RerankedChunk, error) {
	if len(fused) == 0 {
		return nil, nil
	}

	texts := make([]string, len(fused))
	for i, candidate := range fused {
		texts[i] = candidate.Text
	}

	scores, err := uc.reranker.Rerank(ctx, prompt, texts)
	if err != nil {
		return nil, fmt.Errorf("rerank candidates: %w", err)
	}

	ranked := make([]domain.RerankScore, 0, len(scores))
	for _, s := range scores {
		if s.Index < 0 || s.Index >= len(fused) {
			return nil, domain.WrapError(
				domain.ErrInvalidInput,
				"rerank candidates",
				fmt.Errorf("oracle index %d out of range [0,%d)", s.Index, len(fused)),
			)
		}
		ranked = append(ranked, domain.RerankScore{
			Index: s.Index,
			Score: sigmoid(s.Score, sigmoidK),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if threshold > 0 {
		kept := ranked[:0]
		for _, s := range ranked {
			if s.Score >= threshold {
				kept = append(kept, s)
			}
		}
		ranked = kept
	}
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	out := make([]domain.RerankedChunk, 0, len(ranked))
	for _, s := range ranked {
		candidate := fused[s.Index]
		text := candidate.Text
		if text == "" {
			chunk, err := uc.chunks.Get(ctx, candidate.DocID, candidate.ID)
			if err != nil {
				return nil, fmt.Errorf("resolve chunk text: %w", err)
			}
			text = chunk.Text
		}
		out = append(out, domain.RerankedChunk{
			ID:    candidate.ID,
			DocID: candidate.DocID,
			Text:  text,
			Score: s.Score,
		})
	}
	return out, nil
}
