// Package chunker splits document text at points of maximal semantic discontinuity.
//
// Sentences are embedded together with their neighbours, the cosine distance
// between adjacent sentences is measured, and a boundary is placed wherever
// that distance exceeds the given percentile of the document's own distances.
package chunker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"rax/model"
)

const (
	DefaultBreakpointPercentile = 95
	DefaultBufferSize           = 1
)

// ErrEmbeddingCount reports embeddings that do not pair up one to one with sentences.
var ErrEmbeddingCount = errors.New("embedding count does not match sentence count")

type Config struct {
	BreakpointPercentile float64 // (0, 100]; 0 selects DefaultBreakpointPercentile
	BufferSize           int
	EmbedBatchSize       int
}

type SemanticChunker struct {
	embedder model.Embedder
	cfg      Config
	logger   *slog.Logger
}

func New(embedder model.Embedder, cfg Config) *SemanticChunker {
	if cfg.BreakpointPercentile <= 0 || cfg.BreakpointPercentile > 100 {
		cfg.BreakpointPercentile = DefaultBreakpointPercentile
	}
	if cfg.BufferSize < 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	return &SemanticChunker{
		embedder: embedder,
		cfg:      cfg,
		logger:   slog.Default(),
	}
}

// Split returns the chunk texts of one document in order. Fewer than two
// sentences give a single chunk without any embedding call.
func (c *SemanticChunker) Split(ctx context.Context, text string) ([]string, error) {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}
	if len(sentences) < 2 {
		return []string{strings.Join(sentences, "")}, nil
	}

	units := CombineBuffered(sentences, c.cfg.BufferSize)
	embeddings, err := model.EmbedBatched(ctx, c.embedder, units, c.cfg.EmbedBatchSize)
	if err != nil {
		return nil, fmt.Errorf("embed sentence groups: %w", err)
	}

	chunks, err := ChunkSentences(sentences, embeddings, c.cfg.BreakpointPercentile)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("[CHUNKER] split document", "sentences", len(sentences), "chunks", len(chunks))
	return chunks, nil
}

// ChunkSentences groups sentences into chunks given the embedding of every
// (buffered) sentence. It performs no I/O. A single sentence is one chunk
// whatever the embeddings.
func ChunkSentences(sentences []string, embeddings [][]float32, percentile float64) ([]string, error) {
	if len(sentences) == 0 {
		return nil, nil
	}
	if len(sentences) < 2 {
		return []string{sentences[0]}, nil
	}
	if len(embeddings) != len(sentences) {
		return nil, fmt.Errorf("%w: %d embeddings for %d sentences", ErrEmbeddingCount, len(embeddings), len(sentences))
	}

	breaks := Breakpoints(Distances(embeddings), percentile)

	chunks := make([]string, 0, len(breaks)+1)
	start := 0
	for _, b := range breaks {
		chunks = append(chunks, strings.Join(sentences[start:b+1], ""))
		start = b + 1
	}
	if start < len(sentences) {
		chunks = append(chunks, strings.Join(sentences[start:], ""))
	}
	return chunks, nil
}

// Distances returns 1 - cosine similarity for every adjacent pair.
func Distances(embeddings [][]float32) []float64 {
	if len(embeddings) < 2 {
		return nil
	}
	out := make([]float64, len(embeddings)-1)
	for i := 0; i < len(embeddings)-1; i++ {
		out[i] = 1 - model.Cosine(embeddings[i], embeddings[i+1])
	}
	return out
}

// Breakpoints returns the indices i whose distance to i+1 is strictly above
// the percentile threshold.
func Breakpoints(distances []float64, percentile float64) []int {
	if len(distances) == 0 {
		return nil
	}
	threshold := Percentile(distances, percentile)
	var out []int
	for i, d := range distances {
		if d > threshold {
			out = append(out, i)
		}
	}
	return out
}

// Percentile interpolates linearly between the closest ranks (numpy's default).
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}
