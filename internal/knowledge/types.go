package knowledge

import "time"

// Document is the unit of retrievable knowledge.
//
// Title is unique across all documents and serves as the ingestion
// idempotency key. Embedding is excluded from read projections because of its
// size; only Save and StreamEmbeddings touch it.
type Document struct {
	ID          string            // UUID, assigned at save, immutable
	Title       string            // unique per logical source file
	Content     string            // full text body
	Embedding   []float32         // fixed dimensionality per deployment
	Source      string            // provenance, e.g. originating filename
	Metadata    map[string]string // flat key/value pairs, default empty
	CreatedAt   time.Time
	LastUpdated time.Time
}

// Result is a single search hit.
//
// Score is the backend's ranking value: cosine similarity for vector search,
// ts_rank for text search. The two scales are not comparable; callers must
// not merge ranked lists by raw score.
type Result struct {
	Document Document // projection without Embedding
	Score    float32
}

// DocumentVector is the slim projection streamed to the external vector
// index: just enough to rebuild an index entry.
type DocumentVector struct {
	ID        string
	Title     string
	Source    string
	Embedding []float32
}
