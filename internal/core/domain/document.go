package domain

import "time"

type DocumentStatus string

const (
	StatusCreated    DocumentStatus = "created"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is the unit of ingestion. Contents are immutable after creation;
// status and error are maintained by the processing worker.
type Document struct {
	ID       string         `json:"id"`
	Contents string         `json:"contents"`
	Status   DocumentStatus `json:"status"`
	Error    string         `json:"error,omitempty"`
	Created  time.Time      `json:"created"`
	Updated  time.Time      `json:"updated"`
}

// Chunk is a contextualized slice of a document, the unit of indexing and
// retrieval. Chunk ids are generated fresh per ingestion run and are the join
// key across the lexical index, the vector index and reranked results.
type Chunk struct {
	ID      string    `json:"id"`
	DocID   string    `json:"doc_id"`
	Text    string    `json:"text"`
	Created time.Time `json:"created"`
}
