package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/okurganov/contextual-rag/internal/core/domain"
	"github.com/okurganov/contextual-rag/internal/core/ports"
)

// QueryConfig tunes the query-time pipeline. Zero values fall back to the
// defaults from the original retrieval design.
type QueryConfig struct {
	LexicalLimit   int
	VectorTopK     int
	FusionK        int
	VectorPenalty  int
	MaxCandidates  int
	TopK           int
	ScoreThreshold float64
}

func (c QueryConfig) normalize() QueryConfig {
	out := c
	if out.LexicalLimit <= 0 {
		out.LexicalLimit = 40
	}
	if out.VectorTopK <= 0 {
		out.VectorTopK = 20
	}
	if out.FusionK <= 0 {
		out.FusionK = rrfK
	}
	if out.VectorPenalty <= 0 {
		out.VectorPenalty = rrfVectorPenalty
	}
	if out.MaxCandidates <= 0 {
		out.MaxCandidates = fusionMaxCandidates
	}
	if out.TopK <= 0 {
		out.TopK = 8
	}
	if out.ScoreThreshold <= 0 {
		out.ScoreThreshold = 0.501
	}
	return out
}

type QueryUseCase struct {
	rewriter   ports.RewriteModel
	embedder   ports.Embedder
	vectors    ports.VectorIndex
	chunks     ports.ChunkRepository
	docs       ports.DocumentRepository
	reranker   ports.RerankModel
	completion ports.CompletionModel
	cfg        QueryConfig
}

func NewQueryUseCase(
	rewriter ports.RewriteModel,
	embedder ports.Embedder,
	vectors ports.VectorIndex,
	chunks ports.ChunkRepository,
	docs ports.DocumentRepository,
	reranker ports.RerankModel,
	completion ports.CompletionModel,
	cfg QueryConfig,
) *QueryUseCase {
	return &QueryUseCase{
		rewriter:   rewriter,
		embedder:   embedder,
		vectors:    vectors,
		chunks:     chunks,
		docs:       docs,
		reranker:   reranker,
		completion: completion,
		cfg:        cfg.normalize(),
	}
}

// Query runs the full retrieval pipeline: prompt rewrite, parallel hybrid
// search, reciprocal rank fusion, cross-encoder rerank, document aggregation
// and answer synthesis.
func (uc *QueryUseCase) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "query", errors.New("prompt is required"))
	}

	topK := req.TopK
	if topK <= 0 {
		topK = uc.cfg.TopK
	}
	threshold := req.ScoreThreshold
	if threshold <= 0 {
		threshold = uc.cfg.ScoreThreshold
	}

	rewrite, degraded := uc.rewritePrompt(ctx, req.Prompt)

	lexical, vector, err := uc.hybridSearch(ctx, rewrite, req.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}

	fused := fuseHits(lexical, vector, uc.cfg.FusionK, uc.cfg.VectorPenalty, uc.cfg.MaxCandidates)

	chunks, err := uc.rerank(ctx, req.Prompt, fused, threshold, topK)
	if err != nil {
		return nil, err
	}

	docs, err := uc.aggregateDocuments(ctx, chunks)
	if err != nil {
		return nil, err
	}

	answer, err := uc.completion.Complete(ctx, buildAnswerPrompt(req.Prompt, chunks))
	if err != nil {
		return nil, fmt.Errorf("synthesize answer: %w", err)
	}

	return &domain.QueryResult{
		Keywords:   rewrite.Keywords,
		Queries:    rewrite.Queries,
		Chunks:     chunks,
		Answer:     answer,
		Docs:       docs,
		Degraded:   degraded,
		FusedCount: len(fused),
	}, nil
}

// rewritePrompt expands the prompt into sub-queries and keywords. Generation
// failures degrade to the raw prompt for vector search with no lexical terms,
// so the pipeline can always proceed.
func (uc *QueryUseCase) rewritePrompt(ctx context.Context, prompt string) (domain.Rewrite, bool) {
	rewrite, err := uc.rewriter.RewriteQuery(ctx, prompt)
	if err != nil || len(rewrite.Queries) == 0 {
		return domain.Rewrite{Queries: []string{prompt}, Keywords: []string{}}, true
	}
	return rewrite, false
}

// hybridSearch fans out one lexical query per keyword and one embedding plus
// similarity query per sub-query, all concurrently, each independently
// timeframe filtered. It performs no ranking: raw hit lists come back
// unmerged. A failure in any sub-call fails the joint search.
func (uc *QueryUseCase) hybridSearch(
	ctx context.Context,
	rewrite domain.Rewrite,
	timeframe domain.Timeframe,
) ([]domain.LexicalHit, [][]domain.VectorHit, error) {
	perKeyword := make([][]domain.LexicalHit, len(rewrite.Keywords))
	perQuery := make([][]domain.VectorHit, len(rewrite.Queries))

	g, gctx := errgroup.WithContext(ctx)

	for i, keyword := range rewrite.Keywords {
		term := sanitizeSearchTerm(keyword)
		if term == "" {
			continue
		}
		i, term := i, term
		g.Go(func() error {
			hits, err := uc.chunks.SearchLexical(gctx, term, timeframe, uc.cfg.LexicalLimit)
			if err != nil {
				return fmt.Errorf("lexical search %q: %w", term, err)
			}
			perKeyword[i] = hits
			return nil
		})
	}

	for i, query := range rewrite.Queries {
		i, query := i, query
		g.Go(func() error {
			vector, err := uc.embedder.EmbedQuery(gctx, query)
			if err != nil {
				return fmt.Errorf("embed sub-query: %w", err)
			}
			hits, err := uc.vectors.Query(gctx, vector, uc.cfg.VectorTopK, timeframe)
			if err != nil {
				return fmt.Errorf("vector search: %w", err)
			}
			perQuery[i] = hits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Lexical hits are concatenated across keywords; dedup happens in fusion.
	var lexical []domain.LexicalHit
	for _, hits := range perKeyword {
		lexical = append(lexical, hits...)
	}
	return lexical, perQuery, nil
}

// sanitizeSearchTerm strips characters outside word and space classes so
// keyword terms cannot smuggle full-text search syntax.
func sanitizeSearchTerm(term string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '_', r == ' ', r == '\t', r == '\n':
			return r
		default:
			return -1
		}
	}, term)
	return strings.TrimSpace(cleaned)
}
