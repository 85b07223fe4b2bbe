package settings

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"skyline-hq/anarchy/pkg/errorcheck"
	"skyline-hq/anarchy/pkg/telemetry/metrics"
)

// Watcher reloads the settings file when it changes on disk. Reloaded
// entries are staged, never applied directly: the host applies them between
// frames with ApplyPending, so a frame never sees a half-updated table.
type Watcher struct {
	store    *FileStore
	watcher  *fsnotify.Watcher
	debounce *Debouncer
	metrics  *metrics.Collector
	logger   *slog.Logger

	mu         sync.Mutex
	running    bool
	pending    []errorcheck.PolicyEntry
	hasPending bool

	started chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for store. A zero debounce uses 100ms.
func NewWatcher(store *FileStore, debounce time.Duration, m *metrics.Collector, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		store:    store,
		watcher:  fw,
		debounce: NewDebouncer(debounce),
		metrics:  m,
		logger:   logger.With("component", "settings.watcher", "path", store.Path()),
		started:  make(chan struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Started is closed once the watcher is receiving events.
func (w *Watcher) Started() <-chan struct{} {
	return w.started
}

// Watch blocks processing file events until ctx is cancelled or Stop is
// called. The directory holding the file is watched so atomic renames are
// seen.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	target := filepath.Clean(w.store.Path())
	if err := w.watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch settings directory: %w", err)
	}
	close(w.started)

	w.logger.Info("Settings watcher started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Settings watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("Settings watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != target || event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}

			w.logger.Debug("Settings file event", "op", event.Op.String())
			w.debounce.Trigger(func() {
				if err := w.Reload(ctx); err != nil {
					w.logger.Error("Settings reload failed", "error", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("Settings watcher error", "error", err)
		}
	}
}

// Reload reads the file and stages its entries.
func (w *Watcher) Reload(ctx context.Context) error {
	entries, err := w.store.Load(ctx)
	w.metrics.RecordReload(err)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.pending = entries
	w.hasPending = true
	w.mu.Unlock()

	w.logger.Info("Settings reloaded", "entries", len(entries))
	return nil
}

// Pending reports whether staged entries are waiting to be applied.
func (w *Watcher) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasPending
}

// ApplyPending applies staged entries to registry and reports whether the
// table changed. Call it between frames.
func (w *Watcher) ApplyPending(registry *errorcheck.Registry) bool {
	w.mu.Lock()
	entries, ok := w.pending, w.hasPending
	w.pending, w.hasPending = nil, false
	w.mu.Unlock()

	if !ok {
		return false
	}

	before := registry.Entries()
	registry.ApplyEntries(entries)
	return !slices.Equal(before, registry.Entries())
}

// Stop stops the watcher and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}

	w.debounce.Stop()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}
