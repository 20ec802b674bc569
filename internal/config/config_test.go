package config

import "testing"

func TestLoadIncludesRetrievalDefaults(t *testing.T) {
	t.Setenv("LEXICAL_SEARCH_LIMIT", "")
	t.Setenv("VECTOR_TOP_K", "")
	t.Setenv("FUSION_RRF_K", "")
	t.Setenv("FUSION_MAX_CANDIDATES", "")
	t.Setenv("RAG_TOP_K", "")
	t.Setenv("RAG_SCORE_THRESHOLD", "")

	cfg := Load()
	if cfg.LexicalSearchLimit != 40 {
		t.Fatalf("expected default lexical search limit 40, got %d", cfg.LexicalSearchLimit)
	}
	if cfg.VectorTopK != 20 {
		t.Fatalf("expected default vector top k 20, got %d", cfg.VectorTopK)
	}
	if cfg.FusionRRFK != 60 {
		t.Fatalf("expected default fusion rrf k 60, got %d", cfg.FusionRRFK)
	}
	if cfg.FusionMaxCandidates != 150 {
		t.Fatalf("expected default fusion candidates 150, got %d", cfg.FusionMaxCandidates)
	}
	if cfg.RAGTopK != 8 {
		t.Fatalf("expected default top k 8, got %d", cfg.RAGTopK)
	}
	if cfg.RAGScoreThreshold != 0.501 {
		t.Fatalf("expected default score threshold 0.501, got %v", cfg.RAGScoreThreshold)
	}
}

func TestLoadParsesRetrievalOverrides(t *testing.T) {
	t.Setenv("LEXICAL_SEARCH_LIMIT", "25")
	t.Setenv("VECTOR_TOP_K", "50")
	t.Setenv("FUSION_RRF_K", "75")
	t.Setenv("RAG_SCORE_THRESHOLD", "0.8")
	t.Setenv("LLM_PROVIDER", "openai")

	cfg := Load()
	if cfg.LexicalSearchLimit != 25 {
		t.Fatalf("expected lexical search limit 25, got %d", cfg.LexicalSearchLimit)
	}
	if cfg.VectorTopK != 50 {
		t.Fatalf("expected vector top k 50, got %d", cfg.VectorTopK)
	}
	if cfg.FusionRRFK != 75 {
		t.Fatalf("expected fusion rrf k 75, got %d", cfg.FusionRRFK)
	}
	if cfg.RAGScoreThreshold != 0.8 {
		t.Fatalf("expected score threshold 0.8, got %v", cfg.RAGScoreThreshold)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected provider openai, got %q", cfg.LLMProvider)
	}
}

func TestLoadFallsBackOnBadNumbers(t *testing.T) {
	t.Setenv("EMBED_BATCH_SIZE", "not-a-number")
	t.Setenv("RAG_SCORE_THRESHOLD", "high")

	cfg := Load()
	if cfg.EmbedBatchSize != 10 {
		t.Fatalf("expected fallback batch size 10, got %d", cfg.EmbedBatchSize)
	}
	if cfg.RAGScoreThreshold != 0.501 {
		t.Fatalf("expected fallback threshold 0.501, got %v", cfg.RAGScoreThreshold)
	}
}
