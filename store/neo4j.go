package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"rax/types"
)

var indexNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Neo4jOptions struct {
	URI       string
	Username  string
	Password  string
	Database  string // empty selects the server default
	IndexName string
}

// Neo4jStore stores chunks as (:Document) nodes behind a native vector index.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	index    string
	logger   *slog.Logger

	mu   sync.RWMutex
	dims int
}

func NewNeo4jStore(ctx context.Context, opts Neo4jOptions) (*Neo4jStore, error) {
	if !indexNamePattern.MatchString(opts.IndexName) {
		return nil, types.StoreError("neo4j open", fmt.Errorf("invalid index name %q", opts.IndexName))
	}
	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.Username, opts.Password, ""))
	if err != nil {
		return nil, types.StoreError("neo4j open", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, types.StoreError("neo4j connect", err)
	}

	return &Neo4jStore{
		driver:   driver,
		database: opts.Database,
		index:    opts.IndexName,
		logger:   slog.Default(),
	}, nil
}

func (n *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return n.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: n.database})
}

func (n *Neo4jStore) EnsureIndex(ctx context.Context, dimensions int, similarity types.Similarity) error {
	if err := checkIndexParams("neo4j ensure index", dimensions, similarity); err != nil {
		return err
	}

	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	// index names cannot be parameters in schema commands
	create := fmt.Sprintf("CREATE VECTOR INDEX `%s` IF NOT EXISTS "+
		"FOR (d:Document) ON (d.embedding) "+
		"OPTIONS {indexConfig: {`vector.dimensions`: $dimensions, `vector.similarity_function`: 'cosine'}}", n.index)
	res, err := session.Run(ctx, create, map[string]any{"dimensions": dimensions})
	if err != nil {
		return types.StoreError("neo4j ensure index", err)
	}
	if _, err := res.Consume(ctx); err != nil {
		return types.StoreError("neo4j ensure index", err)
	}

	got, err := n.indexDimensions(ctx, session)
	if err != nil {
		return types.StoreError("neo4j ensure index", err)
	}
	if got != dimensions {
		return types.StoreError("neo4j ensure index",
			fmt.Errorf("%w: index %s has %d, requested %d", types.ErrDimensionMismatch, n.index, got, dimensions))
	}

	res, err = session.Run(ctx, "CALL db.awaitIndex($name, 300)", map[string]any{"name": n.index})
	if err != nil {
		return types.StoreError("neo4j await index", err)
	}
	if _, err := res.Consume(ctx); err != nil {
		return types.StoreError("neo4j await index", err)
	}

	n.mu.Lock()
	n.dims = dimensions
	n.mu.Unlock()
	n.logger.Info("[STORE] vector index ready", "index", n.index, "dimensions", dimensions)
	return nil
}

func (n *Neo4jStore) indexDimensions(ctx context.Context, session neo4j.SessionWithContext) (int, error) {
	res, err := session.Run(ctx,
		"SHOW VECTOR INDEXES YIELD name, options WHERE name = $name RETURN options",
		map[string]any{"name": n.index})
	if err != nil {
		return 0, err
	}
	rec, err := res.Single(ctx)
	if err != nil {
		return 0, fmt.Errorf("read back index %s: %w", n.index, err)
	}
	options, _, err := neo4j.GetRecordValue[map[string]any](rec, "options")
	if err != nil {
		return 0, err
	}
	return vectorDimensions(options)
}

// vectorDimensions extracts `vector.dimensions` from the options map of SHOW INDEXES.
func vectorDimensions(options map[string]any) (int, error) {
	cfg, ok := options["indexConfig"].(map[string]any)
	if !ok {
		return 0, errors.New("index options carry no indexConfig")
	}
	switch v := cfg["vector.dimensions"].(type) {
	case int64:
		return int(v), nil
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("unexpected vector.dimensions %v (%T)", v, v)
	}
}

func (n *Neo4jStore) InsertBatch(ctx context.Context, chunks []types.DocumentChunk) error {
	n.mu.RLock()
	dims := n.dims
	n.mu.RUnlock()
	if err := validateChunks("neo4j insert", chunks, dims); err != nil {
		return err
	}

	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	return insertDocuments(ctx, func(ctx context.Context) (neo4j.ExplicitTransaction, error) {
		return session.BeginTransaction(ctx)
	}, chunks)
}

const insertDocumentsQuery = `
	UNWIND $documents AS doc
	CREATE (d:Document {
		text: doc.text,
		embedding: doc.embedding,
		source_file: doc.source_file,
		chunk_index: doc.chunk_index,
		run_id: doc.run_id
	})`

// insertDocuments writes one batch in a single explicit transaction and
// returns the first failure as is, without driver retries.
func insertDocuments(ctx context.Context, begin func(context.Context) (neo4j.ExplicitTransaction, error), chunks []types.DocumentChunk) error {
	tx, err := begin(ctx)
	if err != nil {
		return types.StoreError("neo4j insert", err)
	}
	// rolls back unless committed
	defer tx.Close(ctx)

	res, err := tx.Run(ctx, insertDocumentsQuery, map[string]any{"documents": documentParams(chunks)})
	if err != nil {
		return types.StoreError("neo4j insert", err)
	}
	if _, err := res.Consume(ctx); err != nil {
		return types.StoreError("neo4j insert", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return types.StoreError("neo4j commit", err)
	}
	return nil
}

func documentParams(chunks []types.DocumentChunk) []any {
	docs := make([]any, len(chunks))
	for i, c := range chunks {
		emb := make([]float64, len(c.Embedding))
		for j, x := range c.Embedding {
			emb[j] = float64(x)
		}
		docs[i] = map[string]any{
			"text":        c.Text,
			"embedding":   emb,
			"source_file": c.SourceFile,
			"chunk_index": int64(c.ChunkIndex),
			"run_id":      c.RunID.String(),
		}
	}
	return docs
}

func (n *Neo4jStore) Search(ctx context.Context, vector []float32, topK int) ([]types.RetrievalResult, error) {
	if topK <= 0 {
		return []types.RetrievalResult{}, nil
	}
	n.mu.RLock()
	dims := n.dims
	n.mu.RUnlock()
	// an index created by an earlier process is accepted as is
	if dims != 0 {
		if err := validateQuery("neo4j search", vector, dims); err != nil {
			return nil, err
		}
	}

	session := n.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	emb := make([]float64, len(vector))
	for i, x := range vector {
		emb[i] = float64(x)
	}
	res, err := session.Run(ctx, `
		CALL db.index.vector.queryNodes($index, $top_k, $embedding)
		YIELD node, score
		RETURN node.text AS text, node.source_file AS source_file, score
		ORDER BY score DESC`,
		map[string]any{"index": n.index, "top_k": int64(topK), "embedding": emb})
	if err != nil {
		return nil, types.StoreError("neo4j search", err)
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, types.StoreError("neo4j search", err)
	}

	out := make([]types.RetrievalResult, 0, len(records))
	for _, rec := range records {
		text, _, err := neo4j.GetRecordValue[string](rec, "text")
		if err != nil {
			return nil, types.StoreError("neo4j search", err)
		}
		source, _, err := neo4j.GetRecordValue[string](rec, "source_file")
		if err != nil {
			return nil, types.StoreError("neo4j search", err)
		}
		score, _, err := neo4j.GetRecordValue[float64](rec, "score")
		if err != nil {
			return nil, types.StoreError("neo4j search", err)
		}
		out = append(out, types.RetrievalResult{Text: text, SourceFile: source, Score: score})
	}
	if len(out) > topK {
		out = out[:topK]
	}
	n.logger.Debug("[SEARCH] neo4j query", "index", n.index, "top_k", topK, "results", len(out))
	return out, nil
}

func (n *Neo4jStore) Close() error {
	return n.driver.Close(context.Background())
}
