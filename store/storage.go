package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rax/types"
)

const DefaultInsertBatchSize = 100

var ErrIndexNotReady = errors.New("vector index not ensured")

// VectorStorer persists document chunks and answers nearest-neighbour queries.
type VectorStorer interface {
	// EnsureIndex creates the vector index if absent. Calling it again with
	// the same parameters has no effect; a different dimension is an error.
	EnsureIndex(ctx context.Context, dimensions int, similarity types.Similarity) error
	// InsertBatch writes all chunks in one request or none of them.
	InsertBatch(ctx context.Context, chunks []types.DocumentChunk) error
	// Search returns at most topK results by descending score.
	Search(ctx context.Context, vector []float32, topK int) ([]types.RetrievalResult, error)
	Close() error
}

// InsertBatches validates chunks and inserts them in sequential batches of at
// most size chunks. A failed batch stops the run; earlier batches stay stored.
// It returns the number of batches written.
func InsertBatches(ctx context.Context, s VectorStorer, chunks []types.DocumentChunk, size int) (int, error) {
	if size <= 0 {
		size = DefaultInsertBatchSize
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	if err := validateChunks("insert batches", chunks, len(chunks[0].Embedding)); err != nil {
		return 0, err
	}

	batches := 0
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		if err := s.InsertBatch(ctx, chunks[start:end]); err != nil {
			return batches, fmt.Errorf("batch %d (chunks %d-%d): %w", batches, start, end-1, err)
		}
		batches++
		slog.Info("[STORE] batch stored", "batch", batches, "from", start, "to", end-1, "total", len(chunks))
	}
	return batches, nil
}

func validateChunks(op string, chunks []types.DocumentChunk, dims int) error {
	if dims <= 0 {
		return types.StoreError(op, ErrIndexNotReady)
	}
	for i, c := range chunks {
		if c.Text == "" {
			return types.StoreError(op, fmt.Errorf("chunk %d of %s has empty text", c.ChunkIndex, c.SourceFile))
		}
		if len(c.Embedding) != dims {
			return types.StoreError(op, fmt.Errorf("chunk %d (batch position %d): %w: got %d, want %d",
				c.ChunkIndex, i, types.ErrDimensionMismatch, len(c.Embedding), dims))
		}
	}
	return nil
}

func validateQuery(op string, vector []float32, dims int) error {
	if dims <= 0 {
		return types.StoreError(op, ErrIndexNotReady)
	}
	if len(vector) != dims {
		return types.StoreError(op, fmt.Errorf("query vector: %w: got %d, want %d", types.ErrDimensionMismatch, len(vector), dims))
	}
	return nil
}

func checkIndexParams(op string, dimensions int, similarity types.Similarity) error {
	if dimensions <= 0 {
		return types.StoreError(op, fmt.Errorf("invalid dimensions %d", dimensions))
	}
	if similarity != types.SimilarityCosine {
		return types.StoreError(op, fmt.Errorf("unsupported similarity %q", similarity))
	}
	return nil
}
