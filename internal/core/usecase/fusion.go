package usecase

import (
	"math"
	"sort"

	"github.com/okurganov/contextual-rag/internal/core/domain"
)

const (
	// rrfK is the reciprocal rank fusion constant (Cormack et al. 2009).
	rrfK = 60
	// rrfVectorPenalty scales the fusion constant for the vector family.
	rrfVectorPenalty = 1
	// fusionMaxCandidates bounds the candidate list handed to the reranker.
	fusionMaxCandidates = 150
)

// fuseHits merges the lexical hit list and the per-sub-query vector hit sets
// into one candidate list via reciprocal rank fusion. Only rank positions
// feed the fused score, so the two families need no score normalization.
// A chunk surfaced by both channels accumulates both contributions and
// outranks a chunk found by only one.
func fuseHits(lexical []domain.LexicalHit, vector [][]domain.VectorHit, k, vectorPenalty, limit int) []domain.FusedCandidate {
	if k <= 0 {
		k = rrfK
	}
	if vectorPenalty <= 0 {
		vectorPenalty = rrfVectorPenalty
	}
	if limit <= 0 {
		limit = fusionMaxCandidates
	}

	// Accumulator local to this fusion call, keyed by chunk id.
	acc := make(map[string]*domain.FusedCandidate)

	add := func(id, docID, text string, score float64) {
		candidate, ok := acc[id]
		if !ok {
			acc[id] = &domain.FusedCandidate{ID: id, DocID: docID, Text: text, Score: score}
			return
		}
		candidate.Score += score
		if candidate.Text == "" {
			candidate.Text = text
		}
		if candidate.DocID == "" {
			candidate.DocID = docID
		}
	}

	for i, hit := range dedupeLexicalHits(lexical) {
		add(hit.ID, hit.DocID, hit.Text, 1.0/float64(k+i))
	}
	for i, hit := range dedupeVectorHits(vector) {
		add(hit.ID, hit.DocID, hit.Text, 1.0/float64(vectorPenalty*k+i))
	}

	out := make([]domain.FusedCandidate, 0, len(acc))
	for _, candidate := range acc {
		out = append(out, *candidate)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].DocID != out[j].DocID {
			return out[i].DocID < out[j].DocID
		}
		return out[i].ID < out[j].ID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// dedupeVectorHits flattens the per-sub-query result sets and collapses
// duplicates by chunk id, averaging the scores. Averaging rather than taking
// the max rewards chunks repeatedly surfaced across diverse sub-queries
// while normalizing for repeat count.
func dedupeVectorHits(perQuery [][]domain.VectorHit) []domain.VectorHit {
	groups := make(map[string]*domain.VectorHit)
	order := make([]string, 0)

	for _, hits := range perQuery {
		for _, hit := range hits {
			group, ok := groups[hit.ID]
			if !ok {
				h := hit
				h.Count = 1
				groups[hit.ID] = &h
				order = append(order, hit.ID)
				continue
			}
			group.Score += hit.Score
			group.Count++
		}
	}

	out := make([]domain.VectorHit, 0, len(groups))
	for _, id := range order {
		group := groups[id]
		group.Score /= float64(group.Count)
		out = append(out, *group)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// dedupeLexicalHits collapses duplicates by (docID, id), averaging the rank
// positions. Ordering uses the absolute averaged rank so both sign
// conventions of the underlying engine sort the same way.
func dedupeLexicalHits(hits []domain.LexicalHit) []domain.LexicalHit {
	type group struct {
		hit     domain.LexicalHit
		rankSum float64
		count   int
	}

	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, hit := range hits {
		key := hit.DocID + "\x00" + hit.ID
		g, ok := groups[key]
		if !ok {
			groups[key] = &group{hit: hit, rankSum: hit.Rank, count: 1}
			order = append(order, key)
			continue
		}
		g.rankSum += hit.Rank
		g.count++
	}

	out := make([]domain.LexicalHit, 0, len(groups))
	for _, key := range order {
		g := groups[key]
		g.hit.Rank = g.rankSum / float64(g.count)
		out = append(out, g.hit)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := math.Abs(out[i].Rank), math.Abs(out[j].Rank)
		if ri != rj {
			return ri > rj
		}
		return out[i].ID < out[j].ID
	})
	return out
}
