package api

import (
	"context"
	"net/http"
	"time"
)

// KnowledgeProber reports on the document store for readiness checks.
// *knowledge.Store satisfies this.
type KnowledgeProber interface {
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// health is a liveness probe. Returns 200 as long as the process serves HTTP.
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// ready is a readiness probe. It verifies the document store is reachable
// and reports how many documents are available for retrieval.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "document store unreachable",
		}, s.logger)
		return
	}

	count, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Warn("document count failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "document store unreachable",
		}, s.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"documents": count,
	}, s.logger)
}
