package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rax/types"
)

func testChunks(runID uuid.UUID) []types.DocumentChunk {
	vecs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0.7, 0.7, 0},
		{0, 0.6, 0.8},
	}
	chunks := make([]types.DocumentChunk, len(vecs))
	for i, v := range vecs {
		chunks[i] = types.DocumentChunk{
			RunID:      runID,
			Text:       fmt.Sprintf("chunk number %d", i),
			Embedding:  v,
			SourceFile: fmt.Sprintf("doc%d.pdf", i%2),
			ChunkIndex: i,
		}
	}
	return chunks
}

// storeContract runs the properties every backend must satisfy.
func storeContract(t *testing.T, s VectorStorer) {
	ctx := context.Background()

	require.NoError(t, s.EnsureIndex(ctx, 3, types.SimilarityCosine))
	require.NoError(t, s.EnsureIndex(ctx, 3, types.SimilarityCosine), "second EnsureIndex must be a no-op")

	err := s.EnsureIndex(ctx, 4, types.SimilarityCosine)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStore)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)

	chunks := testChunks(uuid.New())
	batches, err := InsertBatches(ctx, s, chunks, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, batches)

	t.Run("self retrieval", func(t *testing.T) {
		for _, c := range chunks {
			res, err := s.Search(ctx, c.Embedding, 1)
			require.NoError(t, err)
			require.Len(t, res, 1)
			assert.Equal(t, c.Text, res[0].Text)
			assert.Equal(t, c.SourceFile, res[0].SourceFile)
			assert.InDelta(t, 1.0, res[0].Score, 1e-4)
		}
	})

	t.Run("topK bound and order", func(t *testing.T) {
		for topK := 0; topK <= len(chunks)+2; topK++ {
			res, err := s.Search(ctx, []float32{1, 0.1, 0}, topK)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(res), topK)
			assert.Len(t, res, min(topK, len(chunks)))
			for i := 1; i < len(res); i++ {
				assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
			}
		}
	})

	t.Run("negative topK", func(t *testing.T) {
		res, err := s.Search(ctx, []float32{1, 0, 0}, -1)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("query dimension mismatch", func(t *testing.T) {
		_, err := s.Search(ctx, []float32{1, 0}, 3)
		assert.ErrorIs(t, err, types.ErrDimensionMismatch)
	})

	t.Run("invalid chunk rejects batch", func(t *testing.T) {
		bad := []types.DocumentChunk{
			{RunID: uuid.New(), Text: "fine", Embedding: []float32{1, 1, 1}, SourceFile: "x.pdf"},
			{RunID: uuid.New(), Text: "short", Embedding: []float32{1, 1}, SourceFile: "x.pdf", ChunkIndex: 1},
		}
		err := s.InsertBatch(ctx, bad)
		assert.ErrorIs(t, err, types.ErrDimensionMismatch)

		res, err := s.Search(ctx, []float32{1, 1, 1}, 10)
		require.NoError(t, err)
		for _, r := range res {
			assert.NotEqual(t, "fine", r.Text)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	storeContract(t, s)
	assert.Equal(t, 5, s.Len())
}

func TestChromemStore_InMemory(t *testing.T) {
	s, err := NewChromemStore("", "document_embedding")
	require.NoError(t, err)
	storeContract(t, s)
}

func TestChromemStore_PersistsIndexDimension(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chromem")

	s, err := NewChromemStore(path, "document_embedding")
	require.NoError(t, err)
	require.NoError(t, s.EnsureIndex(ctx, 3, types.SimilarityCosine))
	_, err = InsertBatches(ctx, s, testChunks(uuid.New()), 10)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewChromemStore(path, "document_embedding")
	require.NoError(t, err)

	res, err := reopened.Search(ctx, []float32{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "chunk number 2", res[0].Text)

	err = reopened.EnsureIndex(ctx, 8, types.SimilarityCosine)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestSearchBeforeIndexIsEmpty(t *testing.T) {
	res, err := NewMemoryStore().Search(context.Background(), []float32{1}, 5)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestEnsureIndex_RejectsUnsupportedSimilarity(t *testing.T) {
	err := NewMemoryStore().EnsureIndex(context.Background(), 3, types.Similarity("euclidean"))
	assert.ErrorIs(t, err, types.ErrStore)
}

func TestInsertBatches(t *testing.T) {
	ctx := context.Background()

	t.Run("empty input", func(t *testing.T) {
		n, err := InsertBatches(ctx, NewMemoryStore(), nil, 100)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("validates whole set before writing", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.EnsureIndex(ctx, 3, types.SimilarityCosine))
		chunks := testChunks(uuid.New())
		chunks[4].Text = ""

		n, err := InsertBatches(ctx, s, chunks, 2)
		require.Error(t, err)
		assert.Zero(t, n)
		assert.Zero(t, s.Len())
	})

	t.Run("default size", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.EnsureIndex(ctx, 3, types.SimilarityCosine))
		n, err := InsertBatches(ctx, s, testChunks(uuid.New()), 0)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("without index", func(t *testing.T) {
		_, err := InsertBatches(ctx, NewMemoryStore(), testChunks(uuid.New()), 2)
		assert.ErrorIs(t, err, ErrIndexNotReady)
	})
}

func TestVectorDimensions(t *testing.T) {
	dims, err := vectorDimensions(map[string]any{
		"indexProvider": "vector-2.0",
		"indexConfig": map[string]any{
			"vector.dimensions":          int64(1536),
			"vector.similarity_function": "COSINE",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1536, dims)

	_, err = vectorDimensions(map[string]any{})
	assert.Error(t, err)

	_, err = vectorDimensions(map[string]any{"indexConfig": map[string]any{"vector.dimensions": "many"}})
	assert.Error(t, err)
}

func TestDocumentParams(t *testing.T) {
	runID := uuid.New()
	params := documentParams([]types.DocumentChunk{{
		RunID:      runID,
		Text:       "hello",
		Embedding:  []float32{0.5, 0.25},
		SourceFile: "a.pdf",
		ChunkIndex: 7,
	}})

	require.Len(t, params, 1)
	doc, ok := params[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", doc["text"])
	assert.Equal(t, []float64{0.5, 0.25}, doc["embedding"])
	assert.Equal(t, "a.pdf", doc["source_file"])
	assert.Equal(t, int64(7), doc["chunk_index"])
	assert.Equal(t, runID.String(), doc["run_id"])
}

func TestNeo4jStore_RejectsUnsafeIndexName(t *testing.T) {
	_, err := NewNeo4jStore(context.Background(), Neo4jOptions{
		URI:       "bolt://localhost:7687",
		IndexName: "x` DROP",
	})
	assert.ErrorIs(t, err, types.ErrStore)
}
