package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{Level: slog.LevelInfo})

	logger.Info("ingest complete", "succeeded", 3, "skipped", 1)

	out := buf.String()
	if !strings.Contains(out, "ingest complete") {
		t.Errorf("missing message, got %q", out)
	}
	if !strings.Contains(out, "succeeded=3") {
		t.Errorf("missing attribute, got %q", out)
	}
}

func TestNewWithWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{JSON: true})

	logger.Info("reindex", "transferred", 42)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "reindex" {
		t.Errorf("msg = %v, want reindex", entry["msg"])
	}
	if entry["transferred"] != float64(42) {
		t.Errorf("transferred = %v, want 42", entry["transferred"])
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{Level: slog.LevelWarn})

	logger.Debug("noise")
	logger.Info("still noise")
	logger.Warn("important")

	out := buf.String()
	if strings.Contains(out, "noise") {
		t.Errorf("below-level entries leaked: %q", out)
	}
	if !strings.Contains(out, "important") {
		t.Errorf("warn entry missing: %q", out)
	}
}

func TestNewNop_DiscardsOutput(t *testing.T) {
	logger := NewNop()
	// Must not panic and must accept all levels.
	logger.Debug("a")
	logger.Info("b")
	logger.Warn("c")
	logger.Error("d")
}
