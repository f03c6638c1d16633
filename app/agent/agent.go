package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"rax/types"
)

const (
	SystemPrompt = "You are a helpful assistant. Answer the user's question based only on the provided context. " +
		"If the context doesn't contain enough information, say so."

	ContextDelimiter = "\n\n---\n\n"
)

// Synthesizer produces an answer grounded in the retrieved chunks.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, chunks []types.RetrievalResult) (string, error)
}

// Prompt is the chat input for one question.
type Prompt struct {
	System string
	User   string
	Chunks int // chunks that made it into the context
	Tokens int
}

// PromptBuilder renders the context and user message. With MaxContextTokens
// set, trailing chunks that do not fit are dropped; the first chunk is always kept.
type PromptBuilder struct {
	MaxContextTokens int

	countTokens func(string) int
	logger      *slog.Logger
}

func NewPromptBuilder(maxContextTokens int) *PromptBuilder {
	return &PromptBuilder{
		MaxContextTokens: maxContextTokens,
		countTokens:      CountTokens,
		logger:           slog.Default(),
	}
}

func (b *PromptBuilder) Build(question string, chunks []types.RetrievalResult) Prompt {
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}

	if b.MaxContextTokens > 0 {
		for len(texts) > 1 && b.countTokens(strings.Join(texts, ContextDelimiter)) > b.MaxContextTokens {
			texts = texts[:len(texts)-1]
		}
		if len(texts) < len(chunks) {
			b.logger.Info("[CONTEXT] context budget reached", "max_tokens", b.MaxContextTokens,
				"kept", len(texts), "dropped", len(chunks)-len(texts))
		}
	}

	p := Prompt{
		System: SystemPrompt,
		User:   UserMessage(question, strings.Join(texts, ContextDelimiter)),
		Chunks: len(texts),
	}
	p.Tokens = b.countTokens(p.System) + b.countTokens(p.User)
	b.logger.Debug("[CONTEXT] prompt built", "chunks", p.Chunks, "tokens", p.Tokens, "symbols", len(p.System)+len(p.User))
	return p
}

func UserMessage(question, context string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", context, question)
}
