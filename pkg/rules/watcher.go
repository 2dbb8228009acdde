package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a changed catalog is re-validated.
const DefaultDebounce = 150 * time.Millisecond

// ReloadFunc receives the result of re-loading the catalog after a change.
// Exactly one of c and err is non-nil.
type ReloadFunc func(c *Catalog, err error)

// Watcher re-runs catalog loading whenever catalog files change.
// It backs `medqc catalog lint --watch`; audits never reload their catalog.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	closed  bool
}

// NewWatcher creates a watcher for a catalog file or directory.
// A non-positive debounce uses DefaultDebounce.
func NewWatcher(path string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     path,
		debounce: debounce,
		logger:   logger.With("component", "rules.watcher"),
		fsw:      fsw,
	}, nil
}

// Watch blocks until ctx is cancelled, calling onReload after every settled
// burst of catalog file events.
func (w *Watcher) Watch(ctx context.Context, onReload ReloadFunc) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	if w.closed {
		w.mu.Unlock()
		return errors.New("watcher closed")
	}
	w.running = true
	w.mu.Unlock()

	defer w.Close()

	// Directories are watched themselves; for a single file the parent is
	// watched so editors that replace the file by rename are still seen.
	dir := w.path
	if info, err := os.Stat(w.path); err != nil {
		return fmt.Errorf("failed to watch path: %w", err)
	} else if !info.IsDir() {
		dir = filepath.Dir(w.path)
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.logger.Info("catalog watcher started", "path", w.path, "debounce_ms", w.debounce.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("catalog watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("catalog file event", "path", event.Name, "op", event.Op.String())
			w.schedule(func() {
				c, err := Load(w.path)
				onReload(c, err)
			})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("catalog watcher error", "error", err)
		}
	}
}

// Close stops pending reloads and releases the fsnotify handle.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	return w.fsw.Close()
}

// schedule resets the debounce timer so fn runs once per burst.
func (w *Watcher) schedule(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		closed := w.closed
		w.mu.Unlock()
		if !closed {
			fn()
		}
	})
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if info, err := os.Stat(w.path); err == nil && !info.IsDir() {
		return filepath.Clean(event.Name) == filepath.Clean(w.path)
	}
	return isCatalogFile(base)
}
