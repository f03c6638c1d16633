package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type fileState struct {
	firstSeen time.Time
	size      int64
	modTime   time.Time
}

// Watcher polls a directory and emits each PDF once it has stopped changing
// for the settle time. A file is emitted again only after Done is called
// for it and it is still present.
type Watcher struct {
	dir      string
	interval time.Duration
	settle   time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	seen       map[string]fileState
	processing map[string]bool
}

func NewWatcher(dir string, interval, settle time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{
		dir:        dir,
		interval:   interval,
		settle:     settle,
		logger:     slog.Default(),
		seen:       make(map[string]fileState),
		processing: make(map[string]bool),
	}
}

// Watch blocks until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, fileChan chan<- string) {
	w.logger.Info("[WATCHER] start monitoring folder", "dir", w.dir, "settle", w.settle)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer w.logger.Info("[WATCHER] file watcher stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, path := range w.scan(time.Now()) {
				select {
				case fileChan <- path:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// scan returns the files that became ready at now.
func (w *Watcher) scan(now time.Time) []string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("[WATCHER] error while reading source directory", "dir", w.dir, "error", err)
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	current := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() || !IsPDF(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		current[path] = true

		if w.processing[path] {
			continue
		}

		st, ok := w.seen[path]
		if !ok || st.size != info.Size() || !st.modTime.Equal(info.ModTime()) {
			if !ok {
				w.logger.Info("[WATCHER] new file detected", "file", path)
			}
			w.seen[path] = fileState{firstSeen: now, size: info.Size(), modTime: info.ModTime()}
			continue
		}

		if now.Sub(st.firstSeen) >= w.settle {
			w.processing[path] = true
			ready = append(ready, path)
		}
	}

	for path := range w.seen {
		if !current[path] {
			delete(w.seen, path)
			delete(w.processing, path)
		}
	}
	return ready
}

// Done releases a file emitted by Watch.
func (w *Watcher) Done(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.processing, path)
	delete(w.seen, path)
}

// MoveToDated moves filePath into baseDir/YYYY-MM-DD, adding a counter to the
// name when the destination already exists. It returns the new path.
func MoveToDated(filePath, baseDir string, now time.Time) (string, error) {
	destDir := filepath.Join(baseDir, now.Format("2006-01-02"))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating directory: %w", err)
	}

	destPath := filepath.Join(destDir, filepath.Base(filePath))
	ext := filepath.Ext(destPath)
	baseName := strings.TrimSuffix(filepath.Base(destPath), ext)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(destPath); os.IsNotExist(err) {
			break
		}
		destPath = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", baseName, counter, ext))
	}

	if err := os.Rename(filePath, destPath); err == nil {
		return destPath, nil
	}
	// rename fails across file systems
	if err := copyFile(filePath, destPath); err != nil {
		return "", fmt.Errorf("error moving file to %s: %w", destDir, err)
	}
	if err := os.Remove(filePath); err != nil {
		return "", fmt.Errorf("error removing %s: %w", filePath, err)
	}
	return destPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func CreateDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
