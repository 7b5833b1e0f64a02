package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Config from disk whenever its backing file changes,
// mirroring the teacher's pkg/index.Watcher: one fsnotify.Watcher, a
// running flag guarded by a mutex, and a stop channel, scaled down from
// watching a whole repo tree to watching a single config file.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	onLoad  func(*Config)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewWatcher creates a watcher for the config file at path. onLoad is
// called with the newly parsed Config each time the file changes; a parse
// error is swallowed and the previous Config keeps running, since a
// manager mid-edit of the file may briefly leave it unparsable.
func NewWatcher(path string, onLoad func(*Config)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	return &Watcher{path: path, watcher: fsWatcher, onLoad: onLoad, stopCh: make(chan struct{})}, nil
}

// Start begins watching. Editors commonly replace a file via rename-into-
// place rather than in-place write, which fsnotify reports as Remove/Create
// rather than Write, so Start watches the file's directory and filters
// events down to this one path.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}

	go w.processEvents()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)

	return w.watcher.Close()
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if cfg, err := Load(w.path); err == nil {
				w.onLoad(cfg)
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
