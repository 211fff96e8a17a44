package config

import (
	"strings"
	"testing"
)

func TestPostgresConnectionString(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "test-host",
		PostgresPort:     5433,
		PostgresUser:     "test-user",
		PostgresPassword: "test-password",
		PostgresDBName:   "test-db",
		PostgresSSLMode:  "require",
	}

	dsn := cfg.PostgresConnectionString()

	expectedParts := []string{
		"host=test-host",
		"port=5433",
		"user=test-user",
		"password='test-password'",
		"dbname=test-db",
		"sslmode=require",
	}
	for _, part := range expectedParts {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN should contain %q, got: %s", part, dsn)
		}
	}
}

func TestPostgresConnectionStringQuotesSpecialCharacters(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "lantern",
		PostgresPassword: `pa ss'wo\rd`,
		PostgresDBName:   "lantern",
		PostgresSSLMode:  "disable",
	}

	dsn := cfg.PostgresConnectionString()

	if !strings.Contains(dsn, `password='pa ss\'wo\\rd'`) {
		t.Errorf("special characters not escaped, got: %s", dsn)
	}
}

func TestPostgresURL(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "test-host",
		PostgresPort:     5433,
		PostgresUser:     "test-user",
		PostgresPassword: "p@ss/word",
		PostgresDBName:   "test-db",
		PostgresSSLMode:  "require",
	}

	url := cfg.PostgresURL()

	if !strings.HasPrefix(url, "postgres://") {
		t.Errorf("URL should use postgres scheme, got: %s", url)
	}
	if !strings.Contains(url, "test-host:5433") {
		t.Errorf("URL should contain host:port, got: %s", url)
	}
	if !strings.Contains(url, "sslmode=require") {
		t.Errorf("URL should contain sslmode, got: %s", url)
	}
	// Special characters in the password must be percent-encoded.
	if strings.Contains(url, "p@ss/word") {
		t.Errorf("password not encoded, got: %s", url)
	}
}
