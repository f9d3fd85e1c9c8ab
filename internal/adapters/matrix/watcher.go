package matrix

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/evanschultz/scorecard/internal/domain"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before it is reloaded.
const DefaultDebounce = 250 * time.Millisecond

// Handler receives each reload result. err is set when the file fails to load.
type Handler func(data *domain.Step3Data, err error)

// Logger is the subset of the runtime logger the watcher writes to.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
}

// nopLogger discards watcher logs.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides the quiet period.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger routes watcher logs to logger.
func WithLogger(logger Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher reloads one Step 3 file whenever it changes on disk. It watches the
// parent directory so editors that save by rename are still picked up.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	handler  Handler
	logger   Logger
	debounce time.Duration
	lastSeen time.Time
	pending  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher constructs a watcher for path. Start must be called to begin watching.
func NewWatcher(path string, handler Handler, opts ...WatcherOption) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("matrix watcher handler is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve step 3 path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		watcher:  fw,
		path:     filepath.Clean(abs),
		handler:  handler,
		logger:   nopLogger{},
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("watch %q: %w", filepath.Dir(w.path), err)
	}
	w.logger.Debug("watching step 3 file", "path", w.path)
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	return w.watcher.Close()
}

// run is the event loop.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := time.NewTicker(max(w.debounce/5, 10*time.Millisecond))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("step 3 watcher error", "err", err)
		case <-tick.C:
			w.flush()
		}
	}
}

// handleEvent records a change to the watched file.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	w.mu.Lock()
	w.lastSeen = time.Now()
	w.pending = true
	w.mu.Unlock()
}

// flush reloads the file once it has been quiet for the debounce window.
func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.pending || time.Since(w.lastSeen) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	data, err := Load(w.path)
	if err != nil {
		w.logger.Warn("reload step 3 file failed", "path", w.path, "err", err)
	} else {
		w.logger.Debug("reloaded step 3 file", "path", w.path, "has_matrix", data.HasMatrix())
	}
	w.handler(data, err)
}
