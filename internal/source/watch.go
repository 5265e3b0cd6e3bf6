package source

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// FileWatcher watches a single answers file and invokes a callback when its
// contents change, debounced so editors that write in several steps trigger
// one reload. The directory is watched rather than the file itself so the
// common replace-by-rename save pattern is still seen.
type FileWatcher struct {
	path     string
	onChange func()
	debounce time.Duration
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	started  bool
	logger   *zap.Logger
}

// FileWatcherOption configures a FileWatcher.
type FileWatcherOption func(*FileWatcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) FileWatcherOption {
	return func(w *FileWatcher) { w.logger = l }
}

// NewFileWatcher creates a watcher for path. onChange is called after changes
// settle.
func NewFileWatcher(path string, onChange func(), opts ...FileWatcherOption) *FileWatcher {
	w := &FileWatcher{
		path:     path,
		onChange: onChange,
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled.
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.mu.Unlock()
	if w.logger != nil {
		w.logger.Debug("answers watcher starting", zap.String("path", w.path))
	}
	go w.run(ctx)
	return nil
}

func (w *FileWatcher) run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if w.logger != nil {
				w.logger.Debug("answers file changed", zap.String("op", event.Op.String()))
			}
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("answers watcher error", zap.Error(err))
			}
		}
	}
}

func (w *FileWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}
