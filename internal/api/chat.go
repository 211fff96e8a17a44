package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// maxChatBodyBytes bounds the request body of one chat call.
const maxChatBodyBytes = 64 << 10

// ChatRequest is the body of POST /ai/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the success body of POST /ai/chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// chat handles POST /ai/chat: one user message in, one grounded answer out.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "could not read request body", s.logger)
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "body must be JSON with a message field", s.logger)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message must not be empty", s.logger)
		return
	}

	answer, err := s.assistant.Answer(r.Context(), req.Message)
	if err != nil {
		s.logger.Error("chat failed", "error", err)
		writeError(w, http.StatusBadGateway, "chat_failed", "could not produce an answer", s.logger)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Response: answer}, s.logger)
}
