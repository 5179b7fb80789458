// Package watcher invalidates the index when files in the corpus directory
// change. Bursts of events are debounced into a single callback.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches one directory, non-recursively, and calls onChange after
// files are created, written, removed or renamed.
type Watcher struct {
	dir      string
	onChange func()
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
	done    chan struct{} // closed by Stop; replaced on each Start
	started bool
}

type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for events to settle.
// Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

func New(dir string, onChange func(), opts ...Option) *Watcher {
	w := &Watcher{
		dir:      filepath.Clean(dir),
		onChange: onChange,
		debounce: defaultDebounce,
		logger:   slog.Default().With("component", "corpus-watcher"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It returns once the watch is registered; events are
// handled in the background until ctx is cancelled or Stop is called. A
// stopped Watcher can be started again.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw
	w.done = make(chan struct{})
	w.started = true
	w.logger.Info("watching corpus directory", "dir", w.dir, "debounce", w.debounce)
	go w.run(ctx, fw, w.done)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, done <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			w.stop(done)
			return
		case <-done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if err != nil && !errors.Is(err, fsnotify.ErrClosed) {
				w.logger.Warn("watcher error", "error", err)
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !relevant(ev) {
		return
	}
	w.logger.Debug("corpus event", "op", ev.Op.String(), "path", ev.Name)
	w.schedule()
}

// relevant filters out chmod-only events and hidden files, which the
// directory source never loads.
func relevant(ev fsnotify.Event) bool {
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		active := w.started
		w.mu.Unlock()
		if active && w.onChange != nil {
			w.onChange()
		}
	})
}

// Stop stops watching and drops any pending callback.
func (w *Watcher) Stop() {
	w.stop(nil)
}

// stop ends the current run. With a non-nil only, it acts only while that run
// is still the active one, so the context of an earlier Start cannot stop a
// later run.
func (w *Watcher) stop(only <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started || (only != nil && only != w.done) {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	close(w.done)
}
