package vecindex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lanternedu/lantern/internal/log"
)

// recordedRequest captures one request the fake Qdrant saw.
type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

func newTestQdrant(t *testing.T, handler http.HandlerFunc) *QdrantClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewQdrantClient(srv.URL, "secret", "documents", WithLogger(log.NewNop()))
}

func recordRequests(t *testing.T, reqs *[]recordedRequest) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		*reqs = append(*reqs, rec)
		_, _ = w.Write([]byte(`{"result": true, "status": "ok"}`))
	}
}

func TestQdrant_Recreate(t *testing.T) {
	var reqs []recordedRequest
	c := newTestQdrant(t, recordRequests(t, &reqs))

	if err := c.Recreate(context.Background(), 1536); err != nil {
		t.Fatalf("Recreate returned error: %v", err)
	}

	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want delete + create", len(reqs))
	}
	if reqs[0].Method != http.MethodDelete || reqs[0].Path != "/collections/documents" {
		t.Errorf("first request = %s %s, want DELETE /collections/documents", reqs[0].Method, reqs[0].Path)
	}
	if reqs[1].Method != http.MethodPut {
		t.Errorf("second request method = %s, want PUT", reqs[1].Method)
	}

	vectors, ok := reqs[1].Body["vectors"].(map[string]any)
	if !ok {
		t.Fatalf("create body missing vectors config: %v", reqs[1].Body)
	}
	if vectors["size"] != float64(1536) {
		t.Errorf("size = %v, want 1536", vectors["size"])
	}
	if vectors["distance"] != "Cosine" {
		t.Errorf("distance = %v, want Cosine", vectors["distance"])
	}
}

func TestQdrant_Recreate_DeleteFailureIsIgnored(t *testing.T) {
	c := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"result": true}`))
	})

	// First-time sync: the collection does not exist yet.
	if err := c.Recreate(context.Background(), 8); err != nil {
		t.Fatalf("Recreate returned error: %v", err)
	}
}

func TestQdrant_Upsert(t *testing.T) {
	var reqs []recordedRequest
	c := newTestQdrant(t, recordRequests(t, &reqs))

	points := []Point{
		{ID: "id-1", Vector: []float32{1, 0}, Payload: map[string]string{"title": "intro"}},
		{ID: "id-2", Vector: []float32{0, 1}, Payload: map[string]string{"title": "syllabus"}},
	}
	if err := c.Upsert(context.Background(), points); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if reqs[0].Path != "/collections/documents/points" {
		t.Errorf("path = %q", reqs[0].Path)
	}
	sent, ok := reqs[0].Body["points"].([]any)
	if !ok || len(sent) != 2 {
		t.Fatalf("points payload = %v", reqs[0].Body["points"])
	}
}

func TestQdrant_Upsert_EmptyBatchIsNoop(t *testing.T) {
	called := false
	c := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	if err := c.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if called {
		t.Error("empty upsert must not hit the index")
	}
}

func TestQdrant_Search(t *testing.T) {
	c := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/documents/points/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("api-key"); got != "secret" {
			t.Errorf("api-key header = %q", got)
		}
		_, _ = w.Write([]byte(`{
			"result": [
				{"id": "id-1", "score": 0.93, "payload": {"title": "intro", "source": "intro.txt"}},
				{"id": "id-2", "score": 0.71, "payload": {"title": "syllabus", "source": "syllabus.txt"}}
			]
		}`))
	})

	hits, err := c.Search(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].ID != "id-1" || hits[0].Score != 0.93 {
		t.Errorf("first hit = %+v", hits[0])
	}
	if hits[0].Payload["title"] != "intro" {
		t.Errorf("payload = %v", hits[0].Payload)
	}
}

func TestQdrant_Unavailable(t *testing.T) {
	c := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if err := c.Upsert(context.Background(), []Point{{ID: "x"}}); !errors.Is(err, ErrIndexUnavailable) {
		t.Errorf("Upsert error = %v, want ErrIndexUnavailable", err)
	}
	if _, err := c.Search(context.Background(), []float32{1}, 1); !errors.Is(err, ErrIndexUnavailable) {
		t.Errorf("Search error = %v, want ErrIndexUnavailable", err)
	}
}
