// Package query is the read path: embed a question, retrieve the nearest
// chunks and ask the chat model for an answer grounded in them.
package query

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rax/app/agent"
	"rax/model"
	"rax/store"
	"rax/types"
)

const DefaultTopK = 5

var ErrEmptyQuestion = errors.New("question is empty")

type Retriever struct {
	embedder model.Embedder
	store    store.VectorStorer
	logger   *slog.Logger
}

func NewRetriever(embedder model.Embedder, s store.VectorStorer) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    s,
		logger:   slog.Default(),
	}
}

// Retrieve returns up to topK chunks ranked by similarity to question.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]types.RetrievalResult, error) {
	if topK <= 0 {
		return []types.RetrievalResult{}, nil
	}
	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	results, err := r.store.Search(ctx, vec, topK)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("[SEARCH] retrieved chunks", "top_k", topK, "found", len(results))
	return results, nil
}

type Service struct {
	retriever   *Retriever
	synthesizer agent.Synthesizer
	topK        int
	logger      *slog.Logger
}

// NewService builds the query orchestrator; topK is used when a request
// does not ask for a specific number of chunks.
func NewService(retriever *Retriever, synthesizer agent.Synthesizer, topK int) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{
		retriever:   retriever,
		synthesizer: synthesizer,
		topK:        topK,
		logger:      slog.Default(),
	}
}

func (s *Service) Ask(ctx context.Context, question string, topK int) (*types.AskResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, types.InputError("ask", ErrEmptyQuestion)
	}
	if topK <= 0 {
		topK = s.topK
	}

	start := time.Now()
	chunks, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	answer, err := s.synthesizer.Synthesize(ctx, question, chunks)
	if err != nil {
		return nil, err
	}

	sources := make([]types.Source, len(chunks))
	for i, c := range chunks {
		sources[i] = types.Source{SourceFile: c.SourceFile, Score: c.Score}
	}
	s.logger.Info("[ASK] question answered", "top_k", topK, "sources", len(sources), "took", time.Since(start))

	return &types.AskResponse{
		Question: question,
		Answer:   answer,
		Sources:  sources,
	}, nil
}
