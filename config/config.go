package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type OpenAIConfig struct {
	APIKey  string `env:"API_KEY" yaml:"api_key"`
	BaseURL string `env:"BASE_URL" yaml:"base_url"`
}

type EmbeddingConfig struct {
	Provider   string `env:"PROVIDER" envDefault:"openai" yaml:"provider" validate:"oneof=openai ollama"`
	Model      string `env:"MODEL" envDefault:"text-embedding-3-small" yaml:"model" validate:"required"`
	Dimensions int    `env:"DIMENSIONS" envDefault:"1536" yaml:"dimensions" validate:"gt=0"`
	BatchSize  int    `env:"BATCH_SIZE" envDefault:"100" yaml:"batch_size" validate:"gt=0"`
}

type ChatConfig struct {
	Provider         string `env:"PROVIDER" envDefault:"openai" yaml:"provider" validate:"oneof=openai ollama"`
	Model            string `env:"MODEL" envDefault:"gpt-4o-mini" yaml:"model" validate:"required"`
	MaxContextTokens int    `env:"MAX_CONTEXT_TOKENS" envDefault:"0" yaml:"max_context_tokens" validate:"gte=0"`
}

type OllamaConfig struct {
	URL string `env:"URL" envDefault:"http://localhost:11434" yaml:"url" validate:"required"`
}

type StoreConfig struct {
	Backend         string `env:"BACKEND" envDefault:"neo4j" yaml:"backend" validate:"oneof=neo4j postgres chromem memory"`
	IndexName       string `env:"INDEX_NAME" envDefault:"document_embedding" yaml:"index_name" validate:"required"`
	InsertBatchSize int    `env:"INSERT_BATCH_SIZE" envDefault:"100" yaml:"insert_batch_size" validate:"gt=0"`
}

type Neo4jConfig struct {
	URI      string `env:"URI" envDefault:"bolt://localhost:7687" yaml:"uri"`
	Username string `env:"USERNAME" envDefault:"neo4j" yaml:"username"`
	Password string `env:"PASSWORD" envDefault:"password" yaml:"password"`
	Database string `env:"DATABASE" yaml:"database"`
}

type PostgresConfig struct {
	DSN string `env:"DSN" yaml:"dsn"`
}

type ChromemConfig struct {
	Path string `env:"PATH" envDefault:"./data/chromem" yaml:"path"`
}

type ChunkConfig struct {
	BreakpointPercentile float64 `env:"BREAKPOINT_PERCENTILE" envDefault:"95" yaml:"breakpoint_percentile" validate:"gt=0,lte=100"`
	BufferSize           int     `env:"BUFFER_SIZE" envDefault:"1" yaml:"buffer_size" validate:"gte=0"`
}

type IngestConfig struct {
	ArchiveDir    string        `env:"ARCHIVE_DIR" yaml:"archive_dir"`
	BadDir        string        `env:"BAD_DIR" yaml:"bad_dir"`
	WatchInterval time.Duration `env:"WATCH_INTERVAL" envDefault:"1s" yaml:"watch_interval" validate:"gt=0"`
	SettleTime    time.Duration `env:"SETTLE_TIME" envDefault:"5s" yaml:"settle_time" validate:"gte=0"`
	LockFile      string        `env:"LOCK_FILE" yaml:"lock_file"`
}

type ServerConfig struct {
	Addr           string        `env:"ADDR" envDefault:":8000" yaml:"addr" validate:"required"`
	RequestTimeout time.Duration `env:"TIMEOUT" envDefault:"60s" yaml:"request_timeout" validate:"gt=0"`
}

// Config is loaded once at process start and never mutated afterwards.
type Config struct {
	OpenAI    OpenAIConfig    `envPrefix:"OPENAI_" yaml:"openai"`
	Embedding EmbeddingConfig `envPrefix:"EMBEDDING_" yaml:"embedding"`
	Chat      ChatConfig      `envPrefix:"CHAT_" yaml:"chat"`
	Ollama    OllamaConfig    `envPrefix:"OLLAMA_" yaml:"ollama"`
	Store     StoreConfig     `envPrefix:"STORE_" yaml:"store"`
	Neo4j     Neo4jConfig     `envPrefix:"NEO4J_" yaml:"neo4j"`
	Postgres  PostgresConfig  `envPrefix:"POSTGRES_" yaml:"postgres"`
	Chromem   ChromemConfig   `envPrefix:"CHROMEM_" yaml:"chromem"`
	Chunk     ChunkConfig     `envPrefix:"CHUNK_" yaml:"chunk"`
	Ingest    IngestConfig    `envPrefix:"INGEST_" yaml:"ingest"`
	Server    ServerConfig    `envPrefix:"SERVER_" yaml:"server"`

	DataDir   string `env:"DATA_DIR" envDefault:"./data" yaml:"data_dir" validate:"required"`
	TopK      int    `env:"TOP_K" envDefault:"5" yaml:"top_k" validate:"gt=0"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" yaml:"log_format" validate:"oneof=text json"`
}

// Load reads .env (if present), the process environment and then the optional
// YAML file at path. Keys present in the file take precedence over the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("cannot load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("cannot parse environment: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Ingest.ArchiveDir == "" {
		c.Ingest.ArchiveDir = strings.TrimRight(c.DataDir, "/") + "/archive"
	}
	if c.Ingest.BadDir == "" {
		c.Ingest.BadDir = strings.TrimRight(c.DataDir, "/") + "/bad"
	}
	if c.Ingest.LockFile == "" {
		c.Ingest.LockFile = strings.TrimRight(c.DataDir, "/") + "/.rax-ingest.lock"
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.OpenAI.APIKey == "" && (c.Embedding.Provider == "openai" || c.Chat.Provider == "openai") {
		return errors.New("invalid config: OPENAI_API_KEY is required for the openai provider")
	}
	if c.Store.Backend == "postgres" && c.Postgres.DSN == "" {
		return errors.New("invalid config: POSTGRES_DSN is required for the postgres store")
	}
	return nil
}

// NewLogger builds the process-wide slog handler from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
