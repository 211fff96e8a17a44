// Package vecindex provides the optional external vector index backend and
// the job that rebuilds it from the document store.
//
// The external index is a derived, rebuildable cache: PostgreSQL remains the
// source of truth, and a partially synced index is acceptable because the
// sync job is safely re-runnable from scratch.
package vecindex

// Point is one vector index entry: a projection of a stored document.
type Point struct {
	ID      string            `json:"id"`
	Vector  []float32         `json:"vector"`
	Payload map[string]string `json:"payload"`
}

// Hit is one search result from the index.
type Hit struct {
	ID      string
	Score   float32
	Payload map[string]string
}
