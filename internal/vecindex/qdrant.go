package vecindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrIndexUnavailable indicates the index endpoint could not be reached or
// answered with an error status.
var ErrIndexUnavailable = errors.New("vector index unavailable")

// DefaultTimeout bounds a single index request.
const DefaultTimeout = 30 * time.Second

// QdrantClient talks to a Qdrant instance over its REST API.
// Safe for concurrent use.
type QdrantClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	collection string
	logger     *slog.Logger
}

// QdrantOption configures a QdrantClient.
type QdrantOption func(*QdrantClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) QdrantOption {
	return func(c *QdrantClient) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) QdrantOption {
	return func(c *QdrantClient) {
		c.logger = logger
	}
}

// NewQdrantClient creates a client for one collection. apiKey may be empty
// for unsecured local instances.
func NewQdrantClient(baseURL, apiKey, collection string, opts ...QdrantOption) *QdrantClient {
	c := &QdrantClient{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		collection: collection,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends one JSON request and decodes the response into out (when non-nil).
func (c *QdrantClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding index request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("index request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"body", string(snippet))
		return fmt.Errorf("%w: %s %s: status %d", ErrIndexUnavailable, method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding index response: %w", err)
		}
	}
	return nil
}

// Recreate drops and recreates the collection with the given vector size and
// cosine distance. DESTRUCTIVE: any existing data in the collection is lost.
func (c *QdrantClient) Recreate(ctx context.Context, dim int) error {
	// Deleting a collection that does not exist yet is fine.
	if err := c.do(ctx, http.MethodDelete, "/collections/"+c.collection, nil, nil); err != nil {
		c.logger.Debug("delete collection before recreate", "collection", c.collection, "error", err)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	if err := c.do(ctx, http.MethodPut, "/collections/"+c.collection, body, nil); err != nil {
		return fmt.Errorf("recreating collection %q: %w", c.collection, err)
	}

	c.logger.Info("recreated collection", "collection", c.collection, "dimension", dim)
	return nil
}

// Upsert writes a batch of points into the collection.
func (c *QdrantClient) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	body := map[string]any{"points": points}
	if err := c.do(ctx, http.MethodPut, "/collections/"+c.collection+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

// searchResponse mirrors Qdrant's points/search result envelope.
type searchResponse struct {
	Result []struct {
		ID      string            `json:"id"`
		Score   float32           `json:"score"`
		Payload map[string]string `json:"payload"`
	} `json:"result"`
}

// Search returns up to limit nearest points by cosine similarity,
// payloads included.
func (c *QdrantClient) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}

	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, "/collections/"+c.collection+"/points/search", body, &resp); err != nil {
		return nil, fmt.Errorf("searching collection %q: %w", c.collection, err)
	}

	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, Hit{ID: r.ID, Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}
