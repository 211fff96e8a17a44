// Package api exposes the chat assistant over HTTP as a small JSON API.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Assistant answers one chat message. *rag.Assistant satisfies this.
type Assistant interface {
	Answer(ctx context.Context, message string) (string, error)
}

// shutdownTimeout bounds graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Server is the JSON API HTTP server.
type Server struct {
	assistant Assistant
	store     KnowledgeProber
	logger    *slog.Logger
	mux       *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(assistant Assistant, store KnowledgeProber, logger *slog.Logger) (*Server, error) {
	if assistant == nil {
		return nil, errors.New("assistant is required")
	}
	if store == nil {
		return nil, errors.New("knowledge store is required")
	}

	s := &Server{
		assistant: assistant,
		store:     store,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /ready", s.ready)
	mux.HandleFunc("POST /ai/chat", s.chat)
	s.mux = mux

	return s, nil
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = loggingMiddleware(s.logger)(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	return handler
}

// Run serves HTTP on addr until ctx is canceled, then drains in-flight
// requests before returning.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
