package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"rax/model"
	"rax/types"
)

// MemoryStore keeps chunks in process memory and scans them on every search.
type MemoryStore struct {
	mu     sync.RWMutex
	dims   int
	chunks []types.DocumentChunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) EnsureIndex(ctx context.Context, dimensions int, similarity types.Similarity) error {
	if err := checkIndexParams("memory ensure index", dimensions, similarity); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dims != 0 && m.dims != dimensions {
		return types.StoreError("memory ensure index",
			fmt.Errorf("%w: index has %d, requested %d", types.ErrDimensionMismatch, m.dims, dimensions))
	}
	m.dims = dimensions
	return nil
}

func (m *MemoryStore) InsertBatch(ctx context.Context, chunks []types.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := validateChunks("memory insert", chunks, m.dims); err != nil {
		return err
	}
	for _, c := range chunks {
		c.Embedding = append([]float32(nil), c.Embedding...)
		m.chunks = append(m.chunks, c)
	}
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, vector []float32, topK int) ([]types.RetrievalResult, error) {
	if topK <= 0 {
		return []types.RetrievalResult{}, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dims == 0 {
		return []types.RetrievalResult{}, nil
	}
	if err := validateQuery("memory search", vector, m.dims); err != nil {
		return nil, err
	}

	results := make([]types.RetrievalResult, 0, len(m.chunks))
	for _, c := range m.chunks {
		results = append(results, types.RetrievalResult{
			Text:       c.Text,
			SourceFile: c.SourceFile,
			Score:      model.Cosine(vector, c.Embedding),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Len reports the number of stored chunks.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

func (m *MemoryStore) Close() error { return nil }
