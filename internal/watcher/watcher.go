// Package watcher monitors the settings file and reports edits made outside
// the running process, so hand-edited settings take effect without a restart.
//
// The parent directory is watched rather than the file itself: editors often
// replace a file via rename, which drops a watch on the old inode.
package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the file must be quiet before onChange fires.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes to a single file.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	fsw     *fsnotify.Watcher
	stopped bool
}

// New creates a Watcher for path. debounce <= 0 uses DefaultDebounce.
func New(path string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		logger:   logger,
	}
}

// Start begins watching. onChange runs on the watcher goroutine once per
// burst of writes. Call Stop() to clean up.
func (w *Watcher) Start(onChange func()) error {
	if w.path == "" || w.path == "." {
		return fmt.Errorf("watch path is empty")
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return fmt.Errorf("watch dir %s: %w", dir, err)
	}

	w.mu.Lock()
	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.stopped = false
	w.mu.Unlock()

	w.logger.Info("settings watcher started", "file", w.path)
	go w.loop(fsw, w.stopCh, w.doneCh, onChange)
	return nil
}

// Stop shuts down the watcher and waits for the loop to exit. Safe to call
// more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.fsw == nil || w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.stopCh)
	fsw, done := w.fsw, w.doneCh
	w.mu.Unlock()

	fsw.Close()
	<-done
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, stop, done chan struct{}, onChange func()) {
	defer close(done)

	// Debounce: a save is often several events (truncate, write, chmod).
	var lastSeen time.Time
	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			lastSeen = time.Now()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			if lastSeen.IsZero() || time.Since(lastSeen) < w.debounce {
				continue
			}
			lastSeen = time.Time{}
			w.logger.Debug("settings file changed", "file", w.path)
			onChange()
		}
	}
}
