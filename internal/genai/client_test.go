package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lanternedu/lantern/internal/log"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", "gpt-4o-mini", WithLogger(log.NewNop()))
}

func TestComplete_Success(t *testing.T) {
	var gotReq completionRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Our program covers full-stack development."}},
			},
		})
	})

	reply, err := c.Complete(context.Background(), "You are a helpful assistant.", "what does the program cover?")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if reply != "Our program covers full-stack development." {
		t.Errorf("reply = %q", reply)
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("roles = %q, %q", gotReq.Messages[0].Role, gotReq.Messages[1].Role)
	}
}

func TestComplete_NoSystemPrompt(t *testing.T) {
	var gotReq completionRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "hi"}},
			},
		})
	})

	if _, err := c.Complete(context.Background(), "", "hello"); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if len(gotReq.Messages) != 1 {
		t.Errorf("messages = %d, want 1 (no system role)", len(gotReq.Messages))
	}
}

func TestComplete_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"error status",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
			},
		},
		{
			"empty choices",
			func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices": []}`))
			},
		},
		{
			"garbage payload",
			func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json at all`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Complete(context.Background(), "", "hello")
			if !errors.Is(err, ErrGenerationFailed) {
				t.Errorf("error = %v, want ErrGenerationFailed", err)
			}
		})
	}
}
