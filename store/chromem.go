package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"rax/types"
)

// indexMeta is persisted next to the chromem directory, since a collection
// does not expose the dimension of its vectors.
type indexMeta struct {
	Name       string           `json:"name"`
	Dimensions int              `json:"dimensions"`
	Similarity types.Similarity `json:"similarity"`
}

// ChromemStore is an embedded vector store. With an empty path it lives only
// in memory.
type ChromemStore struct {
	db       *chromem.DB
	name     string
	metaPath string
	logger   *slog.Logger

	mu   sync.Mutex
	col  *chromem.Collection
	meta indexMeta
}

func NewChromemStore(path, indexName string) (*ChromemStore, error) {
	s := &ChromemStore{
		name:   indexName,
		logger: slog.Default(),
	}
	if path == "" {
		s.db = chromem.NewDB()
		return s, nil
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, types.StoreError("chromem open", err)
	}
	s.db = db
	s.metaPath = filepath.Clean(path) + ".meta.json"

	if err := s.loadMeta(); err != nil {
		return nil, types.StoreError("chromem open", err)
	}
	s.logger.Info("[STORE] chromem opened", "path", path, "index", indexName, "dimensions", s.meta.Dimensions)
	return s, nil
}

func (s *ChromemStore) EnsureIndex(ctx context.Context, dimensions int, similarity types.Similarity) error {
	if err := checkIndexParams("chromem ensure index", dimensions, similarity); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta.Dimensions != 0 && s.meta.Dimensions != dimensions {
		return types.StoreError("chromem ensure index",
			fmt.Errorf("%w: index %s has %d, requested %d", types.ErrDimensionMismatch, s.name, s.meta.Dimensions, dimensions))
	}

	col, err := s.db.GetOrCreateCollection(s.name, map[string]string{
		"dimensions": strconv.Itoa(dimensions),
		"similarity": string(similarity),
	}, noEmbedding)
	if err != nil {
		return types.StoreError("chromem ensure index", err)
	}
	s.col = col

	if s.meta.Dimensions == 0 {
		s.meta = indexMeta{Name: s.name, Dimensions: dimensions, Similarity: similarity}
		if err := s.saveMeta(); err != nil {
			return types.StoreError("chromem ensure index", err)
		}
	}
	return nil
}

func (s *ChromemStore) InsertBatch(ctx context.Context, chunks []types.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.col == nil {
		return types.StoreError("chromem insert", ErrIndexNotReady)
	}
	if err := validateChunks("chromem insert", chunks, s.meta.Dimensions); err != nil {
		return err
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("%s-%d", c.RunID, c.ChunkIndex),
			Content:   c.Text,
			Embedding: append([]float32(nil), c.Embedding...),
			Metadata: map[string]string{
				"source_file": c.SourceFile,
				"chunk_index": strconv.Itoa(c.ChunkIndex),
				"run_id":      c.RunID.String(),
			},
		}
	}
	if err := s.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return types.StoreError("chromem insert", err)
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, vector []float32, topK int) ([]types.RetrievalResult, error) {
	if topK <= 0 {
		return []types.RetrievalResult{}, nil
	}
	s.mu.Lock()
	col, dims := s.col, s.meta.Dimensions
	s.mu.Unlock()

	if col == nil {
		// nothing was ever indexed
		return []types.RetrievalResult{}, nil
	}
	if err := validateQuery("chromem search", vector, dims); err != nil {
		return nil, err
	}

	// chromem rejects nResults above the collection size
	n := min(topK, col.Count())
	if n == 0 {
		return []types.RetrievalResult{}, nil
	}
	res, err := col.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, types.StoreError("chromem search", err)
	}

	out := make([]types.RetrievalResult, len(res))
	for i, r := range res {
		out[i] = types.RetrievalResult{
			Text:       r.Content,
			SourceFile: r.Metadata["source_file"],
			Score:      float64(r.Similarity),
		}
	}
	return out, nil
}

func (s *ChromemStore) Close() error { return nil }

func (s *ChromemStore) loadMeta() error {
	data, err := os.ReadFile(s.metaPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &s.meta); err != nil {
		return fmt.Errorf("invalid index metadata %s: %w", s.metaPath, err)
	}
	if s.meta.Name != "" && s.meta.Name != s.name {
		// metadata of another index: ignore, dimension will be set on EnsureIndex
		s.meta = indexMeta{}
		return nil
	}
	if s.meta.Dimensions > 0 {
		col, err := s.db.GetOrCreateCollection(s.name, nil, noEmbedding)
		if err != nil {
			return err
		}
		s.col = col
	}
	return nil
}

func (s *ChromemStore) saveMeta() error {
	if s.metaPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.metaPath, data, 0o644)
}

func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("chromem: embeddings are computed before insertion")
}
