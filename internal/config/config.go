// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.lantern/config.yaml or ./config.yaml)
//  3. Default values
//
// Categories:
//   - Storage: PostgreSQL connection (see storage.go)
//   - Provider: embedding and chat model endpoint and credentials
//   - Ingest: documents directory, batch size, inter-batch delay
//   - Vector index: optional Qdrant backend (absence disables it)
//
// Secrets (API keys, passwords) are bound explicitly from the environment and
// never logged. Validation lives in validation.go and uses sentinel errors so
// callers can check with errors.Is.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates the provider API key is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidDimension indicates the embedding dimension is out of range.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidBatchSize indicates the ingest batch size is out of range.
	ErrInvalidBatchSize = errors.New("invalid ingest batch size")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is empty.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrMissingQdrantURL indicates the external vector index is not configured.
	// Reindexing and the qdrant retrieval backend are opt-in; this error is
	// raised only when a command actually needs them.
	ErrMissingQdrantURL = errors.New("qdrant URL not configured")

	// ErrInvalidVectorBackend indicates an unknown vector backend name.
	ErrInvalidVectorBackend = errors.New("invalid vector backend")
)

// Vector backend identifiers used in Config.VectorBackend.
const (
	BackendPostgres = "postgres"
	BackendQdrant   = "qdrant"
)

// Defaults for the embedding provider and retrieval tuning.
const (
	// DefaultEmbeddingModel is the OpenAI-compatible embedding model.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultEmbeddingDimension matches DefaultEmbeddingModel's output size
	// and the vector(1536) column in db/migrations.
	DefaultEmbeddingDimension = 1536

	// DefaultChatModel is the generation model for the chat assistant.
	DefaultChatModel = "gpt-4o-mini"

	// DefaultQdrantCollection is the external index collection name.
	DefaultQdrantCollection = "documents"
)

// Config stores application configuration.
// SENSITIVE fields (passwords, API keys) must never be logged.
type Config struct {
	// Embedding / generation provider (OpenAI-compatible HTTP API)
	OpenAIAPIKey       string `mapstructure:"openai_api_key"` // SENSITIVE
	OpenAIBaseURL      string `mapstructure:"openai_base_url"`
	EmbeddingModel     string `mapstructure:"embedding_model"`
	EmbeddingDimension int    `mapstructure:"embedding_dimension"`
	ChatModel          string `mapstructure:"chat_model"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Ingestion pipeline
	DocumentsDir     string        `mapstructure:"documents_dir"`
	IngestBatchSize  int           `mapstructure:"ingest_batch_size"`
	IngestBatchDelay time.Duration `mapstructure:"ingest_batch_delay"`

	// External vector index (optional)
	QdrantURL        string `mapstructure:"qdrant_url"`
	QdrantAPIKey     string `mapstructure:"qdrant_api_key"` // SENSITIVE
	QdrantCollection string `mapstructure:"qdrant_collection"`

	// Retrieval and chat
	VectorBackend string `mapstructure:"vector_backend"` // "postgres" (default) or "qdrant"
	RetrievalTopK int    `mapstructure:"retrieval_top_k"`
	ContextBudget int    `mapstructure:"context_budget"` // max characters of retrieved context

	// HTTP server
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".lantern")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Provider defaults
	v.SetDefault("openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding_model", DefaultEmbeddingModel)
	v.SetDefault("embedding_dimension", DefaultEmbeddingDimension)
	v.SetDefault("chat_model", DefaultChatModel)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "lantern")
	v.SetDefault("postgres_password", "lantern_dev_password")
	v.SetDefault("postgres_db_name", "lantern")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Ingestion defaults
	v.SetDefault("documents_dir", "./documents")
	v.SetDefault("ingest_batch_size", 5)
	v.SetDefault("ingest_batch_delay", time.Second)

	// Vector index defaults
	v.SetDefault("qdrant_collection", DefaultQdrantCollection)
	v.SetDefault("vector_backend", BackendPostgres)

	// Retrieval defaults
	v.SetDefault("retrieval_top_k", 5)
	v.SetDefault("context_budget", 6000)

	// Server defaults
	v.SetDefault("listen_addr", "127.0.0.1:3500")
}

// bindEnvVariables binds environment variables explicitly. Secrets are bound
// only here, never read from the config file search path implicitly.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a programming error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("openai_base_url", "OPENAI_BASE_URL")
	mustBind("qdrant_url", "QDRANT_URL")
	mustBind("qdrant_api_key", "QDRANT_API_KEY")
	mustBind("qdrant_collection", "QDRANT_COLLECTION")
	mustBind("documents_dir", "LANTERN_DOCUMENTS_DIR")
	mustBind("vector_backend", "LANTERN_VECTOR_BACKEND")
	mustBind("listen_addr", "LANTERN_LISTEN_ADDR")
}
