package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"rax/loader/internal"
	"rax/model"
	"rax/store"
	"rax/types"
)

var ErrIngestInProgress = errors.New("another ingestion run holds the lock")

// Splitter cuts the text of one document into chunk texts.
type Splitter interface {
	Split(ctx context.Context, text string) ([]string, error)
}

type Config struct {
	Dimensions      int // index dimension; 0 takes it from the first embedding
	EmbedBatchSize  int
	InsertBatchSize int
	LockFile        string // empty disables locking

	WatchDir      string
	ArchiveDir    string
	BadDir        string
	WatchInterval time.Duration
	SettleTime    time.Duration
}

// Report summarises one ingestion run.
type Report struct {
	RunID     uuid.UUID
	Documents int
	Pages     int
	Chunks    int
	Batches   int
	State     State
}

type Service struct {
	logger   *slog.Logger
	loader   *internal.PDFLoader
	splitter Splitter
	embedder model.Embedder
	store    store.VectorStorer
	cfg      Config

	// OnState, when set, is called on every state transition.
	OnState func(runID uuid.UUID, state State)
}

func New(embedder model.Embedder, splitter Splitter, storer store.VectorStorer, cfg Config) *Service {
	return &Service{
		logger:   slog.Default(),
		loader:   internal.NewPDFLoader(),
		splitter: splitter,
		embedder: embedder,
		store:    storer,
		cfg:      cfg,
	}
}

// IngestDir ingests every PDF directly inside dir as one run.
func (s *Service) IngestDir(ctx context.Context, dir string) (*Report, error) {
	files, err := internal.ListPDFs(dir)
	if err != nil {
		return &Report{State: StateLoading}, &StateError{State: StateLoading, Err: err}
	}
	if len(files) == 0 {
		return &Report{State: StateLoading}, &StateError{State: StateLoading, Err: types.InputError("load "+dir, types.ErrNoDocuments)}
	}
	return s.Ingest(ctx, files)
}

// Ingest runs Loading → Chunking → Embedding → IndexEnsured → Storing for
// the given files. A failure stops the run in the state it happened in;
// batches already stored are not rolled back.
func (s *Service) Ingest(ctx context.Context, files []string) (*Report, error) {
	report := &Report{RunID: uuid.New()}

	unlock, err := s.lock()
	if err != nil {
		return report, &StateError{State: StateLoading, Err: err}
	}
	defer unlock()

	start := time.Now()
	log := s.logger.With("run_id", report.RunID)

	fail := func(err error) (*Report, error) {
		log.Error("[INGEST] run failed", "state", report.State, "error", err)
		return report, &StateError{State: report.State, Err: err}
	}

	s.enter(report, StateLoading)
	docs, err := s.loader.LoadFiles(ctx, files)
	if err != nil {
		return fail(err)
	}
	report.Documents = len(docs)
	for _, d := range docs {
		report.Pages += len(d.Pages)
	}

	s.enter(report, StateChunking)
	var chunks []types.DocumentChunk
	for _, doc := range docs {
		texts, err := s.splitter.Split(ctx, doc.Text())
		if err != nil {
			return fail(fmt.Errorf("chunk %s: %w", doc.SourceFile, err))
		}
		for _, text := range texts {
			chunks = append(chunks, types.DocumentChunk{
				RunID:      report.RunID,
				Text:       text,
				SourceFile: doc.SourceFile,
				ChunkIndex: len(chunks),
			})
		}
		log.Info("[INGEST] document chunked", "file", doc.SourceFile, "chunks", len(texts))
	}
	if len(chunks) == 0 {
		return fail(types.InputError("chunk", types.ErrEmptyCorpus))
	}
	report.Chunks = len(chunks)

	s.enter(report, StateEmbedding)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := model.EmbedBatched(ctx, s.embedder, texts, s.cfg.EmbedBatchSize)
	if err != nil {
		return fail(err)
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	dims := s.cfg.Dimensions
	if dims == 0 {
		dims = len(embeddings[0])
	}

	s.enter(report, StateIndexEnsured)
	if err := s.store.EnsureIndex(ctx, dims, types.SimilarityCosine); err != nil {
		return fail(err)
	}

	s.enter(report, StateStoring)
	report.Batches, err = store.InsertBatches(ctx, s.store, chunks, s.cfg.InsertBatchSize)
	if err != nil {
		return fail(err)
	}

	s.enter(report, StateComplete)
	log.Info("[INGEST] run complete", "documents", report.Documents, "pages", report.Pages,
		"chunks", report.Chunks, "batches", report.Batches, "took", time.Since(start))
	return report, nil
}

func (s *Service) enter(report *Report, state State) {
	report.State = state
	s.logger.Debug("[INGEST] state", "run_id", report.RunID, "state", state)
	if s.OnState != nil {
		s.OnState(report.RunID, state)
	}
}

func (s *Service) lock() (func(), error) {
	if s.cfg.LockFile == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.cfg.LockFile), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	fl := flock.New(s.cfg.LockFile)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", s.cfg.LockFile, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", s.cfg.LockFile, ErrIngestInProgress)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("[INGEST] failed to release lock", "file", s.cfg.LockFile, "error", err)
		}
	}, nil
}
