package confloader

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher invokes callbacks when watched configuration files change.
type Watcher struct {
	fsw *fsnotify.Watcher
	log *slog.Logger

	mu        sync.RWMutex
	callbacks []func(string)

	done chan struct{}
	once sync.Once
}

// NewWatcher creates a file watcher logging through log. A nil logger
// falls back to slog.Default.
func NewWatcher(log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		fsw:  fsw,
		log:  log,
		done: make(chan struct{}),
	}, nil
}

// Watch registers a file. The parent directory is watched so editors
// that replace the file via rename are still observed.
func (w *Watcher) Watch(path string) error {
	dir := filepath.Dir(path)
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.log.Debug("watching for config changes", "dir", dir, "file", filepath.Base(path))
	return nil
}

// OnChange registers a callback receiving the changed file's path.
func (w *Watcher) OnChange(fn func(string)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, fn)
	w.mu.Unlock()
}

// Start blocks, dispatching change events until Stop is called.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.log.Debug("config file changed", "file", event.Name, "op", event.Op.String())
				w.notify(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// StartAsync runs Start in its own goroutine.
func (w *Watcher) StartAsync() { go w.Start() }

// Stop terminates the watch loop and releases the inotify handle.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) notify(path string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, fn := range w.callbacks {
		fn(path)
	}
}
