// Package knowledge persists documents in PostgreSQL and serves the three
// access paths retrieval depends on: exact title lookup, weighted full-text
// search, and native cosine vector search via pgvector.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

var (
	// ErrNotFound indicates no document matched the lookup.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateTitle indicates a unique-constraint violation on title.
	// During ingestion this is a benign race: the document is already there.
	ErrDuplicateTitle = errors.New("duplicate document title")

	// ErrDimensionMismatch indicates a write with an embedding whose length
	// differs from the deployment's configured dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// maxCandidates caps the ANN search breadth regardless of caller request.
const maxCandidates = 100

// NewPool opens a pgx connection pool with pgvector types registered on
// every connection.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	return pool, nil
}

// Store manages documents in PostgreSQL.
// Safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	dim    int
	logger *slog.Logger
}

// NewStore creates a Store. dim is the deployment's embedding dimensionality;
// every saved embedding must match it exactly.
func NewStore(pool *pgxpool.Pool, dim int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, dim: dim, logger: logger}
}

// documentColumns is the default read projection. The embedding column is
// deliberately absent.
const documentColumns = "id, title, content, source, metadata, created_at, last_updated"

// FindByTitle returns the document with the given title, or ErrNotFound.
// An indexed exact lookup; this is the ingestion idempotency check.
func (s *Store) FindByTitle(ctx context.Context, title string) (*Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE title = $1`, title)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: title %q", ErrNotFound, title)
		}
		return nil, fmt.Errorf("finding document by title: %w", err)
	}
	return doc, nil
}

// Save inserts a new document, assigning its ID and timestamps.
// Returns ErrDuplicateTitle when another writer won the race for the same
// title, and ErrDimensionMismatch for a wrong-shaped embedding.
func (s *Store) Save(ctx context.Context, doc Document) (Document, error) {
	if len(doc.Embedding) != s.dim {
		return Document{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(doc.Embedding), s.dim)
	}

	doc.ID = uuid.NewString()
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.LastUpdated = now
	if doc.Metadata == nil {
		doc.Metadata = map[string]string{}
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return Document{}, fmt.Errorf("marshaling metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (id, title, content, embedding, source, metadata, created_at, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		doc.ID, doc.Title, doc.Content, pgvector.NewVector(doc.Embedding), doc.Source, metadataJSON, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return Document{}, fmt.Errorf("%w: title %q", ErrDuplicateTitle, doc.Title)
		}
		return Document{}, fmt.Errorf("saving document %q: %w", doc.Title, err)
	}

	s.logger.Debug("saved document", "id", doc.ID, "title", doc.Title, "content_length", len(doc.Content))
	return doc, nil
}

// VectorSearch returns up to k nearest neighbors by cosine similarity,
// score descending. numCandidates widens the ANN search (hnsw.ef_search) to
// improve recall; it is capped at 100 and never below k.
func (s *Store) VectorSearch(ctx context.Context, queryVec []float32, k, numCandidates int) ([]Result, error) {
	if len(queryVec) != s.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(queryVec), s.dim)
	}
	if k < 1 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if numCandidates < k {
		numCandidates = k
	}
	if numCandidates > maxCandidates {
		numCandidates = maxCandidates
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning search transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// SET LOCAL cannot take bind parameters; numCandidates is validated above.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", numCandidates)); err != nil {
		return nil, fmt.Errorf("setting search candidates: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT `+documentColumns+`, 1 - (embedding <=> $1) AS score
		 FROM documents
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(queryVec), k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results, err := scanResults(rows, s.logger)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing search transaction: %w", err)
	}
	return results, nil
}

// TextSearch returns up to k documents ranked by weighted full-text match.
// Title matches (weight A = 10) score above content matches (weight B = 5).
// The ts_rank scale is unrelated to cosine similarity.
func (s *Store) TextSearch(ctx context.Context, query string, k int) ([]Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+documentColumns+`,
		        ts_rank('{0,0,5,10}'::float4[], search_tsv, plainto_tsquery('english', $1)) AS score
		 FROM documents
		 WHERE search_tsv @@ plainto_tsquery('english', $1)
		 ORDER BY score DESC
		 LIMIT $2`,
		query, k)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}

	return scanResults(rows, s.logger)
}

// StreamEmbeddings invokes fn for every document that has an embedding,
// one row at a time so memory stays bounded regardless of corpus size.
// A non-nil error from fn stops the stream.
func (s *Store) StreamEmbeddings(ctx context.Context, fn func(DocumentVector) error) error {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, source, embedding FROM documents WHERE embedding IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("streaming embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dv DocumentVector
		var vec pgvector.Vector
		if err := rows.Scan(&dv.ID, &dv.Title, &dv.Source, &vec); err != nil {
			return fmt.Errorf("scanning embedding row: %w", err)
		}
		dv.Embedding = vec.Slice()

		if err := fn(dv); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating embedding rows: %w", err)
	}
	return nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// Ping verifies database connectivity. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// scanDocument scans the default projection into a Document.
func scanDocument(row pgx.Row) (*Document, error) {
	var doc Document
	var metadataJSON []byte

	if err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Source,
		&metadataJSON, &doc.CreatedAt, &doc.LastUpdated); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
		doc.Metadata = map[string]string{}
	}
	return &doc, nil
}

// scanResults drains rows of (projection, score) into Results.
func scanResults(rows pgx.Rows, logger *slog.Logger) ([]Result, error) {
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var res Result
		var metadataJSON []byte

		if err := rows.Scan(&res.Document.ID, &res.Document.Title, &res.Document.Content,
			&res.Document.Source, &metadataJSON, &res.Document.CreatedAt,
			&res.Document.LastUpdated, &res.Score); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}

		if err := json.Unmarshal(metadataJSON, &res.Document.Metadata); err != nil {
			logger.Warn("failed to parse metadata", "document_id", res.Document.ID, "error", err)
			res.Document.Metadata = map[string]string{}
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating result rows: %w", err)
	}
	return results, nil
}
