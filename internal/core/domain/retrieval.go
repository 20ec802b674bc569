package domain

// Timeframe restricts candidates to a creation-time window. Bounds are unix
// milliseconds; a zero bound means unbounded on that side.
type Timeframe struct {
	From int64 `json:"from,omitempty"`
	To   int64 `json:"to,omitempty"`
}

func (t Timeframe) IsZero() bool {
	return t.From == 0 && t.To == 0
}

// Rewrite is the structured expansion of a user prompt: diverse sub-queries
// for vector search plus discrete terms for lexical search.
type Rewrite struct {
	Queries  []string `json:"queries"`
	Keywords []string `json:"keywords"`
}

// LexicalHit is a full-text match. Rank is the engine-native relevance value;
// only its position in the result order carries signal downstream.
type LexicalHit struct {
	ID    string
	DocID string
	Text  string
	Rank  float64
}

// VectorHit is a semantic match. Count tracks how many sub-queries retrieved
// the same vector, used for score averaging during deduplication.
type VectorHit struct {
	ID    string
	DocID string
	Text  string
	Score float64
	Count int
}

// FusedCandidate is the identity-keyed merge of lexical and vector hits.
// Score is a reciprocal-rank-fusion value, not a probability.
type FusedCandidate struct {
	ID    string
	DocID string
	Text  string
	Score float64
}

// RerankedChunk carries a bounded [0,1] confidence from the reranker. It is
// the unit returned to the caller.
type RerankedChunk struct {
	ID    string  `json:"id"`
	DocID string  `json:"doc_id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// RerankScore is one oracle result: Index points into the candidate slice
// that was sent for reranking, Score is the raw cross-encoder output.
type RerankScore struct {
	Index int
	Score float64
}

// VectorRecord is the write-once unit stored in the vector index, keyed by
// chunk id. Timestamp is the parent document creation time in unix ms.
type VectorRecord struct {
	ID        string
	Vector    []float32
	DocID     string
	Text      string
	Timestamp int64
}

// ResultDocument is a document annotated with the maximum confidence among
// its surviving chunks.
type ResultDocument struct {
	Document
	Score float64 `json:"score"`
}

type QueryRequest struct {
	Prompt         string
	Timeframe      Timeframe
	TopK           int
	ScoreThreshold float64
}

type QueryResult struct {
	Keywords []string         `json:"keywords"`
	Queries  []string         `json:"queries"`
	Chunks   []RerankedChunk  `json:"chunks"`
	Answer   string           `json:"answer"`
	Docs     []ResultDocument `json:"docs"`

	// Instrumentation fields, not part of the response body.
	Degraded   bool `json:"-"`
	FusedCount int  `json:"-"`
}
