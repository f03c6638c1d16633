package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"rax/loader/internal"
	"rax/types"
)

// Watch ingests PDFs dropped into WatchDir until ctx is cancelled. Each file
// is its own run. Ingested files move to ArchiveDir; files rejected as bad
// input move to BadDir; other failures leave the file in place to be retried.
func (s *Service) Watch(ctx context.Context) error {
	if err := internal.CreateDirectories(s.cfg.WatchDir, s.cfg.ArchiveDir, s.cfg.BadDir); err != nil {
		return err
	}

	watcher := internal.NewWatcher(s.cfg.WatchDir, s.cfg.WatchInterval, s.cfg.SettleTime)
	fileChan := make(chan string, 10)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.Watch(ctx, fileChan)
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("[INGEST] watch stopped")
			return nil
		case path := <-fileChan:
			s.ingestWatched(ctx, watcher, path)
		}
	}
}

func (s *Service) ingestWatched(ctx context.Context, watcher *internal.Watcher, path string) {
	defer watcher.Done(path)

	report, err := s.Ingest(ctx, []string{path})
	switch {
	case err == nil:
		dest, mvErr := internal.MoveToDated(path, s.cfg.ArchiveDir, time.Now())
		if mvErr != nil {
			s.logger.Error("[INGEST] failed to archive file", "file", path, "error", mvErr)
			return
		}
		s.logger.Info("[INGEST] file archived", "file", filepath.Base(path), "run_id", report.RunID,
			"chunks", report.Chunks, "archive", dest)
	case errors.Is(err, types.ErrInput):
		dest, mvErr := internal.MoveToDated(path, s.cfg.BadDir, time.Now())
		if mvErr != nil {
			s.logger.Error("[INGEST] failed to move bad file", "file", path, "error", mvErr)
			return
		}
		s.logger.Warn("[INGEST] file rejected", "file", filepath.Base(path), "error", err, "moved_to", dest)
	default:
		s.logger.Error("[INGEST] file will be retried", "file", filepath.Base(path), "error", err)
	}
}
