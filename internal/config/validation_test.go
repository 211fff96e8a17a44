package config

import (
	"errors"
	"testing"
)

// validConfig returns a Config that passes Validate.
func validConfig() *Config {
	return &Config{
		PostgresHost:       "localhost",
		PostgresPort:       5432,
		PostgresUser:       "lantern",
		PostgresDBName:     "lantern",
		PostgresSSLMode:    "disable",
		EmbeddingDimension: 1536,
		VectorBackend:      BackendPostgres,
		IngestBatchSize:    5,
		OpenAIAPIKey:       "sk-test",
		QdrantURL:          "http://localhost:6333",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "empty host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.PostgresPort = 0 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty database name",
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
		{
			name:    "zero dimension",
			mutate:  func(c *Config) { c.EmbeddingDimension = 0 },
			wantErr: ErrInvalidDimension,
		},
		{
			name:    "dimension too large",
			mutate:  func(c *Config) { c.EmbeddingDimension = 32000 },
			wantErr: ErrInvalidDimension,
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.VectorBackend = "faiss" },
			wantErr: ErrInvalidVectorBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateIngest(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ValidateIngest(); err != nil {
		t.Errorf("ValidateIngest() = %v, want nil", err)
	}

	cfg.OpenAIAPIKey = ""
	if err := cfg.ValidateIngest(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("ValidateIngest() = %v, want ErrMissingAPIKey", err)
	}

	cfg = validConfig()
	cfg.IngestBatchSize = 0
	if err := cfg.ValidateIngest(); !errors.Is(err, ErrInvalidBatchSize) {
		t.Errorf("ValidateIngest() = %v, want ErrInvalidBatchSize", err)
	}

	cfg.IngestBatchSize = 500
	if err := cfg.ValidateIngest(); !errors.Is(err, ErrInvalidBatchSize) {
		t.Errorf("ValidateIngest() = %v, want ErrInvalidBatchSize", err)
	}
}

func TestValidateServe(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ValidateServe(); err != nil {
		t.Errorf("ValidateServe() = %v, want nil", err)
	}

	cfg.OpenAIAPIKey = ""
	if err := cfg.ValidateServe(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("ValidateServe() = %v, want ErrMissingAPIKey", err)
	}

	// The qdrant backend needs a reachable index URL at startup.
	cfg = validConfig()
	cfg.VectorBackend = BackendQdrant
	cfg.QdrantURL = ""
	if err := cfg.ValidateServe(); !errors.Is(err, ErrMissingQdrantURL) {
		t.Errorf("ValidateServe() = %v, want ErrMissingQdrantURL", err)
	}

	// The postgres backend never needs the index.
	cfg = validConfig()
	cfg.VectorBackend = BackendPostgres
	cfg.QdrantURL = ""
	if err := cfg.ValidateServe(); err != nil {
		t.Errorf("ValidateServe() = %v, want nil for postgres backend", err)
	}
}

func TestValidateReindex(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ValidateReindex(); err != nil {
		t.Errorf("ValidateReindex() = %v, want nil", err)
	}

	cfg.QdrantURL = ""
	if err := cfg.ValidateReindex(); !errors.Is(err, ErrMissingQdrantURL) {
		t.Errorf("ValidateReindex() = %v, want ErrMissingQdrantURL", err)
	}
}
