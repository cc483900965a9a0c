// Package watch re-runs a callback whenever the snapshot corpus changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
)

// DefaultDebounce coalesces bursts of filesystem events.
const DefaultDebounce = 100 * time.Millisecond

// CorpusWatcher monitors a snapshot directory via fsnotify.
type CorpusWatcher struct {
	dir      string
	logger   ports.Logger
	delay    time.Duration
	onChange func(ctx context.Context)
}

// NewCorpusWatcher creates a watcher calling onChange once at start and again
// after snapshot files in dir are created, written, renamed or removed.
func NewCorpusWatcher(dir string, logger ports.Logger, onChange func(ctx context.Context)) *CorpusWatcher {
	return &CorpusWatcher{
		dir:      dir,
		logger:   logger,
		delay:    DefaultDebounce,
		onChange: onChange,
	}
}

// SetDebounce overrides the debounce delay.
func (w *CorpusWatcher) SetDebounce(d time.Duration) {
	w.delay = d
}

// Run watches the directory until ctx is done.
// onChange runs on the calling goroutine, so calls never overlap.
func (w *CorpusWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("corpus watcher: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("%w: corpus watcher: watch %s: %v", domain.ErrStorage, w.dir, err)
	}

	w.onChange(ctx)

	// Armed only after a relevant event.
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("corpus changed", ports.String("file", event.Name), ports.String("op", event.Op.String()))
			debounce.Reset(w.delay)

		case <-debounce.C:
			w.onChange(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("corpus watcher error", ports.Err(err))
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !domain.IsSnapshotName(filepath.Base(event.Name)) {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
