package ml

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultReloadDebounce = 250 * time.Millisecond

// ArtifactWatcher reloads an ArtifactStore when one of its files changes.
// Bursts of events are collapsed into one reload after the debounce interval.
type ArtifactWatcher struct {
	store    *ArtifactStore
	debounce time.Duration
	logger   *zap.Logger
}

func NewArtifactWatcher(store *ArtifactStore, debounce time.Duration, logger *zap.Logger) *ArtifactWatcher {
	if debounce <= 0 {
		debounce = defaultReloadDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactWatcher{store: store, debounce: debounce, logger: logger}
}

// Watch blocks until ctx is cancelled.
func (w *ArtifactWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch directories rather than files so atomic replace (write tmp, rename)
	// is seen.
	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range w.store.Paths().Files() {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.logger.Info("artifact watcher started", zap.Int("files", len(files)), zap.Duration("debounce", w.debounce))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("artifact watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !files[abs] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("artifact changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("artifact watcher error", zap.Error(err))

		case <-timer.C:
			_ = w.store.Reload()
		}
	}
}
