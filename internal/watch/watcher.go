// Package watch re-runs a conversion whenever its input file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"nanlog/internal/logging"
)

// Handler is called with the watched path after a change settles.
type Handler func(ctx context.Context, path string) error

// Stats counts watcher activity.
type Stats struct {
	Events        int
	Runs          int
	Errors        int
	LastEventTime time.Time
	LastEventType string
}

// FileWatcher watches one file. The parent directory is watched rather
// than the file itself so editors that save by rename are still seen.
type FileWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	dir         string
	handler     Handler
	debounceDur time.Duration
	pending     time.Time // zero when nothing is waiting
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stats       Stats
}

// New creates a watcher for path. Changes closer together than debounce
// trigger a single handler call.
func New(path string, debounce time.Duration, handler Handler) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &FileWatcher{
		watcher:     w,
		path:        abs,
		dir:         filepath.Dir(abs),
		handler:     handler,
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching in a goroutine.
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = true
	fw.mu.Unlock()

	if err := fw.watcher.Add(fw.dir); err != nil {
		fw.watcher.Close()
		close(fw.doneCh)
		return fmt.Errorf("failed to watch %s: %w", fw.dir, err)
	}
	logging.Watch("watching %s", fw.path)

	go fw.run(ctx)
	return nil
}

// Stop ends the watch and waits for the loop to exit.
func (fw *FileWatcher) Stop() {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return
	}
	fw.running = false
	fw.mu.Unlock()

	close(fw.stopCh)
	<-fw.doneCh
	if err := fw.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("stopped watching %s", fw.path)
}

// Done is closed when the loop exits.
func (fw *FileWatcher) Done() <-chan struct{} { return fw.doneCh }

// Stats returns a copy of the counters.
func (fw *FileWatcher) Stats() Stats {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.stats
}

func (fw *FileWatcher) run(ctx context.Context) {
	defer close(fw.doneCh)

	tick := fw.debounceDur / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stopCh:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watcher error: %v", err)
			fw.mu.Lock()
			fw.stats.Errors++
			fw.mu.Unlock()

		case <-ticker.C:
			fw.fireIfSettled(ctx)
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != fw.path {
		return
	}

	var kind string
	switch {
	case event.Has(fsnotify.Create):
		kind = "create"
	case event.Has(fsnotify.Write):
		kind = "modify"
	case event.Has(fsnotify.Rename), event.Has(fsnotify.Remove):
		// The replacement file arrives as a Create.
		logging.WatchDebug("%s went away", fw.path)
		return
	default:
		return
	}
	logging.WatchDebug("%s event for %s", kind, fw.path)

	fw.mu.Lock()
	now := time.Now()
	fw.pending = now
	fw.stats.Events++
	fw.stats.LastEventTime = now
	fw.stats.LastEventType = kind
	fw.mu.Unlock()
}

func (fw *FileWatcher) fireIfSettled(ctx context.Context) {
	fw.mu.Lock()
	if fw.pending.IsZero() || time.Since(fw.pending) < fw.debounceDur {
		fw.mu.Unlock()
		return
	}
	fw.pending = time.Time{}
	fw.stats.Runs++
	fw.mu.Unlock()

	if err := fw.handler(ctx, fw.path); err != nil {
		logging.Get(logging.CategoryWatch).Error("handler failed for %s: %v", fw.path, err)
		fw.mu.Lock()
		fw.stats.Errors++
		fw.mu.Unlock()
	}
}

// Run calls handler once for the current file, then again after every
// settled change, until ctx is cancelled. Handler errors are logged and do
// not end the watch; only a failed initial call does.
func Run(ctx context.Context, path string, debounce time.Duration, handler Handler) error {
	fw, err := New(path, debounce, handler)
	if err != nil {
		return err
	}
	if err := handler(ctx, fw.path); err != nil {
		fw.watcher.Close()
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-fw.Done():
	}
	fw.Stop()
	return nil
}
