package model

import (
	"context"
	"fmt"
	"log/slog"

	"rax/types"
)

// Embedder converts text into fixed-dimension vectors.
//
// EmbedMany is a single request to the provider: it preserves order and
// returns exactly one vector per input text.
type Embedder interface {
	ModelID() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedBatched embeds texts with sequential EmbedMany calls of at most size texts each.
func EmbedBatched(ctx context.Context, e Embedder, texts []string, size int) ([][]float32, error) {
	if size <= 0 {
		size = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		vecs, err := e.EmbedMany(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, types.ProviderError(e.ModelID(), fmt.Errorf("got %d embeddings for %d texts", len(vecs), end-start))
		}
		out = append(out, vecs...)
		slog.Debug("[EMBEDDER] embedded batch", "model", e.ModelID(), "from", start, "to", end)
	}
	return out, nil
}
