// Package watcher triggers config reloads when watched files change on
// disk.
//
// Editors typically replace a file by renaming a temporary over it, which
// drops an fsnotify watch placed on the file itself. The watcher therefore
// watches the parent directory and filters events down to the registered
// files. Rapid event bursts are debounced per file.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/conftree/internal/logging"
)

var (
	// ErrWatcherClosed is returned when using a closed watcher.
	ErrWatcherClosed = errors.New("watcher is closed")

	// ErrAlreadyWatching is returned when a file is already registered.
	ErrAlreadyWatching = errors.New("already watching file")
)

// Handler is called with the changed file's path after debouncing.
type Handler func(path string)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the per-file debounce delay. Defaults to 100ms.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher watches a set of config files and invokes handlers on change.
type Watcher struct {
	mu sync.Mutex

	fsw *fsnotify.Watcher
	log *logging.Logger

	debounce time.Duration
	handlers []Handler

	// files maps watched file paths to their pending debounce timer.
	files map[string]*time.Timer

	// dirs counts watched files per parent directory.
	dirs map[string]int

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New creates a watcher. Close must be called to release it.
func New(log *logging.Logger, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		log:      log,
		debounce: 100 * time.Millisecond,
		files:    make(map[string]*time.Timer),
		dirs:     make(map[string]int),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// OnChange registers a reload handler. Handlers run on the watcher's event
// goroutine.
func (w *Watcher) OnChange(h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Watch registers a config file. The file must exist.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	if _, ok := w.files[absPath]; ok {
		return ErrAlreadyWatching
	}

	dir := filepath.Dir(absPath)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[absPath] = nil
	w.log.Debug("watching config file %s", absPath)
	return nil
}

// Unwatch removes a config file from the watch set.
func (w *Watcher) Unwatch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	timer, ok := w.files[absPath]
	if !ok {
		return nil
	}
	if timer != nil {
		timer.Stop()
	}
	delete(w.files, absPath)

	dir := filepath.Dir(absPath)
	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		_ = w.fsw.Remove(dir)
	}
	return nil
}

// Close stops the watcher and cancels pending debounce timers.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for path, timer := range w.files {
		if timer != nil {
			timer.Stop()
		}
		delete(w.files, path)
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watch error: %v", err)
		}
	}
}

// handleEvent debounces a change to a registered file and schedules the
// handler run.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
		return
	}
	path, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	timer, ok := w.files[path]
	if !ok {
		return
	}
	if timer != nil {
		timer.Reset(w.debounce)
		return
	}
	w.files[path] = time.AfterFunc(w.debounce, func() {
		w.fire(path)
	})
}

// fire runs the handlers for one settled change.
func (w *Watcher) fire(path string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	if _, ok := w.files[path]; ok {
		w.files[path] = nil
	}
	handlers := make([]Handler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	w.log.Info("config file %s changed, reloading", path)
	for _, h := range handlers {
		h(path)
	}
}
