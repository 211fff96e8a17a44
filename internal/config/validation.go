package config

import "fmt"

// Validate checks settings every command depends on. Command-specific
// requirements (API keys, the external index) are validated by the
// ValidateIngest/ValidateServe/ValidateReindex variants so that, for example,
// running migrations does not demand an OpenAI key.
func (c *Config) Validate() error {
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port %d out of range [1, 65535]", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	if c.EmbeddingDimension < 1 || c.EmbeddingDimension > 16000 {
		return fmt.Errorf("%w: dimension %d out of range [1, 16000]", ErrInvalidDimension, c.EmbeddingDimension)
	}
	switch c.VectorBackend {
	case BackendPostgres, BackendQdrant:
	default:
		return fmt.Errorf("%w: %q (must be %q or %q)",
			ErrInvalidVectorBackend, c.VectorBackend, BackendPostgres, BackendQdrant)
	}
	return nil
}

// ValidateIngest checks the settings the ingestion pipeline needs.
func (c *Config) ValidateIngest() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingAPIKey)
	}
	if c.IngestBatchSize < 1 || c.IngestBatchSize > 100 {
		return fmt.Errorf("%w: batch size %d out of range [1, 100]", ErrInvalidBatchSize, c.IngestBatchSize)
	}
	return nil
}

// ValidateServe checks the settings the HTTP server needs.
func (c *Config) ValidateServe() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingAPIKey)
	}
	if c.VectorBackend == BackendQdrant && c.QdrantURL == "" {
		return fmt.Errorf("%w: vector_backend=qdrant requires QDRANT_URL", ErrMissingQdrantURL)
	}
	return nil
}

// ValidateReindex checks the settings the reindex job needs.
// The external index is opt-in: a missing URL fails the whole job at startup
// rather than mid-run.
func (c *Config) ValidateReindex() error {
	if c.QdrantURL == "" {
		return fmt.Errorf("%w: set QDRANT_URL", ErrMissingQdrantURL)
	}
	return nil
}
