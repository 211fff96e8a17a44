// Package rag composes embeddings, the document store, and a text generator
// into the retrieval and answering layer.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lanternedu/lantern/internal/knowledge"
	"github.com/lanternedu/lantern/internal/vecindex"
)

// ErrRetrievalUnavailable reports that retrieval could not run at all,
// typically because the query could not be embedded.
var ErrRetrievalUnavailable = errors.New("rag: retrieval unavailable")

// maxCandidates caps the candidate pool handed to the vector search.
const maxCandidates = 100

// Embedder turns a query into a vector. *embedding.Client satisfies this.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher finds the k nearest documents to a query vector. numCandidates is
// the pool size the backend considers before picking the top k.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k, numCandidates int) ([]knowledge.Result, error)
}

// Retriever answers "what documents are relevant to this query".
type Retriever struct {
	embedder Embedder
	searcher Searcher
	logger   *slog.Logger
}

func NewRetriever(embedder Embedder, searcher Searcher, logger *slog.Logger) *Retriever {
	return &Retriever{embedder: embedder, searcher: searcher, logger: logger}
}

// Retrieve embeds the query and returns the k most similar documents,
// best first. An embedding failure means no retrieval is possible and
// returns ErrRetrievalUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]knowledge.Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("retrieve: k must be positive, got %d", k)
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Error("query embedding failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}

	numCandidates := min(20*k, maxCandidates)
	results, err := r.searcher.Search(ctx, vec, k, numCandidates)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	r.logger.Debug("retrieval complete", "query_len", len(query), "k", k, "hits", len(results))
	return results, nil
}

// StoreSearcher runs similarity search directly against the document store.
type StoreSearcher struct {
	store *knowledge.Store
}

func NewStoreSearcher(store *knowledge.Store) *StoreSearcher {
	return &StoreSearcher{store: store}
}

func (s *StoreSearcher) Search(ctx context.Context, vector []float32, k, numCandidates int) ([]knowledge.Result, error) {
	return s.store.VectorSearch(ctx, vector, k, numCandidates)
}

// IndexSearcher runs similarity search against an external vector index and
// hydrates full documents from the store by title.
type IndexSearcher struct {
	index  *vecindex.QdrantClient
	store  *knowledge.Store
	logger *slog.Logger
}

func NewIndexSearcher(index *vecindex.QdrantClient, store *knowledge.Store, logger *slog.Logger) *IndexSearcher {
	return &IndexSearcher{index: index, store: store, logger: logger}
}

func (s *IndexSearcher) Search(ctx context.Context, vector []float32, k, numCandidates int) ([]knowledge.Result, error) {
	hits, err := s.index.Search(ctx, vector, k)
	if err != nil {
		return nil, err
	}

	results := make([]knowledge.Result, 0, len(hits))
	for _, hit := range hits {
		title := hit.Payload["title"]
		doc, err := s.store.FindByTitle(ctx, title)
		if err != nil {
			// The index can lag behind the store. A vanished document is
			// dropped from the result set rather than failing the query.
			if errors.Is(err, knowledge.ErrNotFound) {
				s.logger.Warn("indexed document missing from store", "title", title, "id", hit.ID)
				continue
			}
			return nil, fmt.Errorf("hydrating %q: %w", title, err)
		}
		results = append(results, knowledge.Result{Document: *doc, Score: hit.Score})
	}
	return results, nil
}
