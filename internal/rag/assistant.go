package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lanternedu/lantern/internal/knowledge"
)

const (
	// DefaultTopK is how many documents are retrieved per question.
	DefaultTopK = 5

	// DefaultContextBudget bounds the total characters of document context
	// packed into a prompt.
	DefaultContextBudget = 6000

	// generationTimeout bounds one model completion.
	generationTimeout = 90 * time.Second
)

// fallbackAnswer is returned when the model cannot produce a completion.
// It is a normal answer, not an error: the chat surface stays up even when
// the provider is down.
const fallbackAnswer = "I'm sorry, I'm having trouble answering right now. Please try again in a moment."

const systemPrompt = `You are a helpful assistant for an education platform. Answer the user's question using the provided context documents when they are relevant. If the context does not cover the question, say so honestly instead of guessing.`

// Generator produces a completion from a system prompt and user message.
// *genai.Client satisfies this.
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// DocumentRetriever supplies relevant documents for a query.
// *Retriever satisfies this.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]knowledge.Result, error)
}

// Assistant answers chat messages grounded in retrieved documents.
//
// It degrades rather than fails: retrieval errors produce an answer without
// context, and generation errors produce a fixed fallback answer.
type Assistant struct {
	retriever     DocumentRetriever
	generator     Generator
	logger        *slog.Logger
	topK          int
	contextBudget int
}

// AssistantOption configures an Assistant.
type AssistantOption func(*Assistant)

// WithTopK overrides how many documents are retrieved per question.
func WithTopK(k int) AssistantOption {
	return func(a *Assistant) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithContextBudget overrides the character budget for packed context.
func WithContextBudget(budget int) AssistantOption {
	return func(a *Assistant) {
		if budget > 0 {
			a.contextBudget = budget
		}
	}
}

func NewAssistant(retriever DocumentRetriever, generator Generator, logger *slog.Logger, opts ...AssistantOption) *Assistant {
	a := &Assistant{
		retriever:     retriever,
		generator:     generator,
		logger:        logger,
		topK:          DefaultTopK,
		contextBudget: DefaultContextBudget,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer responds to one user message. It never returns an error for
// provider failures, only for invalid input.
func (a *Assistant) Answer(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("answer: empty message")
	}

	docContext := a.buildContext(ctx, message)

	genCtx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	answer, err := a.generator.Complete(genCtx, systemPrompt+docContext, message)
	if err != nil {
		a.logger.Error("completion failed, serving fallback", "error", err)
		return fallbackAnswer, nil
	}
	return answer, nil
}

// buildContext retrieves documents and packs them into a prompt section.
// Failures yield an empty section: a context-free answer beats no answer.
func (a *Assistant) buildContext(ctx context.Context, message string) string {
	results, err := a.retriever.Retrieve(ctx, message, a.topK)
	if err != nil {
		a.logger.Warn("retrieval failed, answering without context", "error", err)
		return ""
	}
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nContext documents:\n")
	used := 0
	for _, res := range results {
		block := fmt.Sprintf("\n## %s\n%s\n", res.Document.Title, res.Document.Content)
		if used+len(block) > a.contextBudget {
			remaining := a.contextBudget - used
			if remaining <= 0 {
				break
			}
			block = block[:remaining]
		}
		b.WriteString(block)
		used += len(block)
	}
	return b.String()
}
