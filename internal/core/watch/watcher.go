// Package watch uploads CSV files as they appear in a directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/neilberkman/eqviz/internal/core/logger"
)

// DefaultSettle is how long a file must stay unchanged before it is handled
const DefaultSettle = 500 * time.Millisecond

// Handler processes one settled file. Files are handled one at a time.
type Handler func(ctx context.Context, path string) error

// Stats tracks watcher activity
type Stats struct {
	StartTime   time.Time
	Handled     int
	Errors      int
	LastHandled time.Time
}

type Watcher struct {
	dir     string
	exts    []string
	settle  time.Duration
	handle  Handler
	watcher *fsnotify.Watcher

	ready   chan string
	pending map[string]*time.Timer

	mu    sync.Mutex
	stats Stats
}

// New watches dir for files with one of exts. A zero settle uses
// DefaultSettle.
func New(dir string, exts []string, settle time.Duration, handle Handler) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch path does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path is not a directory: %s", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:     dir,
		exts:    exts,
		settle:  settle,
		handle:  handle,
		watcher: watcher,
		ready:   make(chan string, 16),
		pending: make(map[string]*time.Timer),
		stats:   Stats{StartTime: time.Now()},
	}, nil
}

// Run handles files until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	defer w.stopPending()
	logger.Info("watch.started", "dir", w.dir, "extensions", w.exts)

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch.stopped", "dir", w.dir)
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			if w.shouldProcess(event) {
				logger.Debug("watch.event", "op", event.Op.String(), "path", event.Name)
				w.schedule(ctx, event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			logger.Warn("watch.error", "error", err)
			w.record(err)

		case path := <-w.ready:
			delete(w.pending, path)
			err := w.handle(ctx, path)
			if err != nil {
				logger.Warn("watch.handle_failed", "path", path, "error", err)
			} else {
				logger.Info("watch.handled", "path", path)
			}
			w.record(err)
		}
	}
}

// Stats returns a copy of the counters
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range w.exts {
		if ext == e {
			return true
		}
	}
	return false
}

// schedule (re)starts the settle timer for path. Only the Run goroutine
// touches pending.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		select {
		case w.ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopPending() {
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) record(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.stats.Errors++
		return
	}
	w.stats.Handled++
	w.stats.LastHandled = time.Now()
}
