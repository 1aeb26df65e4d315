package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"veritas-hq/sentinel/pkg/policy"
)

// FileSource loads policies from a directory of YAML files and can watch
// the directory for changes, reloading into a store with debouncing so a
// burst of file events triggers a single reload.
type FileSource struct {
	// Dir is the policy directory.
	Dir string

	// DebounceInterval is how long to wait after the last file event
	// before reloading. Default 500ms.
	DebounceInterval time.Duration

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Load reads and validates every policy file in the directory.
func (f *FileSource) Load(ctx context.Context) ([]*policy.Policy, error) {
	return loadDir(f.Dir)
}

// Watch reloads the directory into the store whenever its files change,
// until the context is cancelled. A reload that fails validation is
// logged and dropped; the store keeps the last good set.
//
// Watch blocks; callers typically run it in its own goroutine.
func (f *FileSource) Watch(ctx context.Context, store *policy.Store) error {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(f.Dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", f.Dir, err)
	}

	interval := f.DebounceInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	debounce := newDebouncer(interval)
	defer debounce.stop()

	logger.Info("policy watcher started", "dir", f.Dir, "debounce_ms", interval.Milliseconds())

	reload := func() {
		policies, err := f.Load(ctx)
		if err != nil {
			logger.Error("policy reload failed, keeping previous set", "error", err)
			return
		}
		if err := store.Replace(policies); err != nil {
			logger.Error("policy reload rejected, keeping previous set", "error", err)
			return
		}
		logger.Info("policies reloaded", "count", len(policies))
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !isPolicyFile(filepath.Base(event.Name)) {
				continue
			}
			logger.Debug("policy file event", "path", event.Name, "op", event.Op.String())
			debounce.trigger(reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("policy watcher error", "error", err)
		}
	}
}

// debouncer delays a callback until events pause for the interval.
// A new trigger before the interval elapses replaces the pending one.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, callback)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
