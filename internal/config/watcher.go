// internal/config/watcher.go
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the configuration file for changes and reloads it,
// adapted from the teacher's internal/config/watcher.go — same
// watch-the-file-and-its-directory approach (editors often replace a file
// rather than writing in place), repointed at HarvesterConfig.
type Watcher struct {
	watcher   *fsnotify.Watcher
	path      string
	callbacks []func(*HarvesterConfig)
	mu        sync.RWMutex
	stopped   bool
}

// NewWatcher creates a configuration file watcher for path.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{watcher: fw, path: path}

	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fw.Add(dir); err != nil {
			log.Printf("warning: failed to watch config directory: %v", err)
		}
	}

	go w.watch()
	return w, nil
}

// OnChange registers a callback invoked with the freshly reloaded config
// whenever the watched file changes.
func (w *Watcher) OnChange(callback func(*HarvesterConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

func (w *Watcher) watch() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name == w.path && (event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create) {
				w.handleChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleChange() {
	w.mu.RLock()
	if w.stopped {
		w.mu.RUnlock()
		return
	}
	callbacks := make([]func(*HarvesterConfig), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	cfg, err := Load(w.path)
	if err != nil {
		log.Printf("failed to reload config: %v", err)
		return
	}
	for _, cb := range callbacks {
		cb(cfg)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	return w.watcher.Close()
}
