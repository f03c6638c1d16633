package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"rax/types"
)

const chunksTable = "document_chunks"

// PostgresStore keeps chunks in a pgvector table with an HNSW cosine index.
type PostgresStore struct {
	pool   *pgxpool.Pool
	index  string
	logger *slog.Logger

	mu   sync.RWMutex
	dims int
}

func NewPostgresStore(ctx context.Context, connStr, indexName string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, types.StoreError("postgres open", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, types.StoreError("postgres connect", err)
	}

	return &PostgresStore{
		pool:   pool,
		index:  indexName,
		logger: slog.Default(),
	}, nil
}

func (p *PostgresStore) EnsureIndex(ctx context.Context, dimensions int, similarity types.Similarity) error {
	if err := checkIndexParams("postgres ensure index", dimensions, similarity); err != nil {
		return err
	}

	// the vector dimension is part of the column type and cannot be a parameter
	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS %[1]s (
		id UUID PRIMARY KEY,
		run_id UUID NOT NULL,
		text TEXT NOT NULL,
		embedding vector(%[2]d) NOT NULL,
		source_file TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
		UNIQUE (run_id, chunk_index)
	);

	CREATE INDEX IF NOT EXISTS %[3]s ON %[1]s USING hnsw (embedding vector_cosine_ops);
	CREATE INDEX IF NOT EXISTS %[4]s ON %[1]s(source_file);
	`,
		pgx.Identifier{chunksTable}.Sanitize(),
		dimensions,
		pgx.Identifier{p.index}.Sanitize(),
		pgx.Identifier{chunksTable + "_source_file"}.Sanitize(),
	)
	if _, err := p.pool.Exec(ctx, query); err != nil {
		return types.StoreError("postgres ensure index", err)
	}

	got, err := p.columnDimensions(ctx)
	if err != nil {
		return types.StoreError("postgres ensure index", err)
	}
	if got != dimensions {
		return types.StoreError("postgres ensure index",
			fmt.Errorf("%w: column %s.embedding has %d, requested %d", types.ErrDimensionMismatch, chunksTable, got, dimensions))
	}

	p.mu.Lock()
	p.dims = dimensions
	p.mu.Unlock()
	p.logger.Info("[STORE] vector index ready", "table", chunksTable, "index", p.index, "dimensions", dimensions)
	return nil
}

// columnDimensions reads the declared dimension of the embedding column;
// pgvector stores it as the type modifier.
func (p *PostgresStore) columnDimensions(ctx context.Context) (int, error) {
	var typmod int
	err := p.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = $1::regclass AND attname = 'embedding'`, chunksTable).Scan(&typmod)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("table %s has no embedding column", chunksTable)
	}
	return typmod, err
}

func (p *PostgresStore) InsertBatch(ctx context.Context, chunks []types.DocumentChunk) error {
	p.mu.RLock()
	dims := p.dims
	p.mu.RUnlock()
	if err := validateChunks("postgres insert", chunks, dims); err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return types.StoreError("postgres insert", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
	INSERT INTO document_chunks (id, run_id, text, embedding, source_file, chunk_index)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(query, uuid.New(), c.RunID, c.Text, pgvector.NewVector(c.Embedding), c.SourceFile, c.ChunkIndex)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range chunks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return types.StoreError("postgres insert", fmt.Errorf("chunk %d: %w", chunks[i].ChunkIndex, err))
		}
	}
	if err := br.Close(); err != nil {
		return types.StoreError("postgres insert", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return types.StoreError("postgres insert", err)
	}
	return nil
}

func (p *PostgresStore) Search(ctx context.Context, queryVec []float32, topK int) ([]types.RetrievalResult, error) {
	if topK <= 0 {
		return []types.RetrievalResult{}, nil
	}
	p.mu.RLock()
	dims := p.dims
	p.mu.RUnlock()
	if dims != 0 {
		if err := validateQuery("postgres search", queryVec, dims); err != nil {
			return nil, err
		}
	}

	vector := pgvector.NewVector(queryVec)

	query := `
		SELECT text, source_file, 1-(embedding <=> $1) AS score
		FROM document_chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := p.pool.Query(ctx, query, vector, topK)
	if err != nil {
		return nil, types.StoreError("postgres search", err)
	}
	defer rows.Close()

	results := make([]types.RetrievalResult, 0, topK)
	for rows.Next() {
		var r types.RetrievalResult
		if err := rows.Scan(&r.Text, &r.SourceFile, &r.Score); err != nil {
			return nil, types.StoreError("postgres search", err)
		}
		p.logger.Debug("[SEARCH] chunk found", "source_file", r.SourceFile, "score", r.Score)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, types.StoreError("postgres search", err)
	}
	return results, nil
}

// Close closes the connection pool.
func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.logger.Info("Postgres connection pool is closed")
	}
	return nil
}
