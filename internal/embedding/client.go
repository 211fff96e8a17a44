// Package embedding wraps a remote OpenAI-compatible embedding API.
//
// The client is stateless: each Embed call is a single bounded HTTP request
// with no retries. Callers decide whether a failure is worth retrying, so the
// two failure modes are distinguishable with errors.Is:
//
//   - ErrProviderUnavailable: transport error, timeout, or non-2xx status
//   - ErrMalformedResponse: 2xx response missing the expected payload fields
package embedding

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

var (
	// ErrProviderUnavailable indicates the embedding endpoint could not be
	// reached or answered with an error status.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrMalformedResponse indicates the endpoint answered successfully but
	// the payload is missing the expected embedding fields. Not retryable.
	ErrMalformedResponse = errors.New("malformed embedding response")
)

// DefaultTimeout bounds a single embedding request.
const DefaultTimeout = 60 * time.Second

// Client calls a remote OpenAI-compatible embedding endpoint.
// Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Used by tests and by
// callers that need custom transport settings.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an embedding client for the given endpoint and model.
// baseURL is the API root (e.g. "https://api.openai.com/v1").
func NewClient(baseURL, apiKey, model string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// embedRequest is the wire format of the embeddings endpoint.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse mirrors {"data": [{"embedding": [...]}]}.
type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text.
// Overlong input is the provider's concern (it may truncate); empty input is
// rejected here because the provider would embed nothing meaningful.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty input text", ErrMalformedResponse)
	}

	body, err := json.Marshal(embedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("encoding embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little of the body for the log, never for the caller.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("embedding request failed",
			"status", resp.StatusCode,
			"body", string(snippet))
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var payload embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(payload.Data) == 0 || len(payload.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: response contains no embedding", ErrMalformedResponse)
	}

	return payload.Data[0].Embedding, nil
}
