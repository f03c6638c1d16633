package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so that a developer's .env is not picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, "gpt-4o-mini", cfg.Chat.Model)
	assert.Equal(t, "neo4j", cfg.Store.Backend)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "document_embedding", cfg.Store.IndexName)
	assert.Equal(t, 100, cfg.Store.InsertBatchSize)
	assert.Equal(t, 95.0, cfg.Chunk.BreakpointPercentile)
	assert.Equal(t, 1, cfg.Chunk.BufferSize)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "./data/archive", cfg.Ingest.ArchiveDir)
	assert.Equal(t, "./data/bad", cfg.Ingest.BadDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CHUNK_BREAKPOINT_PERCENTILE", "90")
	t.Setenv("CHUNK_BUFFER_SIZE", "2")
	t.Setenv("STORE_BACKEND", "chromem")
	t.Setenv("NEO4J_PASSWORD", "secret")
	t.Setenv("SERVER_TIMEOUT", "5s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 90.0, cfg.Chunk.BreakpointPercentile)
	assert.Equal(t, 2, cfg.Chunk.BufferSize)
	assert.Equal(t, "chromem", cfg.Store.Backend)
	assert.Equal(t, "secret", cfg.Neo4j.Password)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=from-dotenv\nTOP_K=7\n"), 0o600))
	// godotenv never overrides variables that are already set
	for _, key := range []string{"OPENAI_API_KEY", "TOP_K"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.OpenAI.APIKey)
	assert.Equal(t, 7, cfg.TopK)
}

func TestLoad_YAMLOverridesEnvironment(t *testing.T) {
	dir := chdir(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TOP_K", "3")

	path := filepath.Join(dir, "rax.yaml")
	body := "top_k: 9\nstore:\n  backend: memory\ningest:\n  settle_time: 2s\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.TopK)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 2*time.Second, cfg.Ingest.SettleTime)
	// keys absent from the file keep their environment value
	assert.Equal(t, "document_embedding", cfg.Store.IndexName)
}

func TestLoad_Invalid(t *testing.T) {
	chdir(t)
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STORE_BACKEND", "sqlite")
	_, err = Load("")
	require.Error(t, err)

	t.Setenv("STORE_BACKEND", "postgres")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_DSN")

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("CHUNK_BREAKPOINT_PERCENTILE", "120")
	_, err = Load("")
	require.Error(t, err)

	// the chunker reads 0 as "use the default", so it cannot be configured
	t.Setenv("CHUNK_BREAKPOINT_PERCENTILE", "0")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BreakpointPercentile")
}

func TestLoad_OllamaNeedsNoKey(t *testing.T) {
	chdir(t)
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("CHAT_PROVIDER", "ollama")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.URL)
}
