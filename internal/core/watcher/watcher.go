// Package watcher re-runs checks when their configuration files change.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sunbeam-ops/cloudcheck/internal/core/check"
	"github.com/sunbeam-ops/cloudcheck/internal/core/logger"
	"github.com/sunbeam-ops/cloudcheck/internal/core/ports"
	"go.uber.org/zap"
)

// FileWatcher defines the interface for watching files.
type FileWatcher interface {
	Add(string) error
	Remove(string) error
	Close() error
	Events() chan fsnotify.Event
	Errors() chan error
}

// debounceDelay is how long after the last event a re-run is triggered.
// Editors and config managers write files in bursts.
const debounceDelay = 2 * time.Second

type Watcher struct {
	fw       FileWatcher
	runner   ports.Runner
	logger   *zap.Logger
	mu       sync.Mutex
	watchMap map[string]*check.Check // config path -> check
	dirRefs  map[string]int          // watched directory -> path count
	debounce map[string]*time.Timer
	running  bool
}

// New creates a watcher backed by fsnotify.
func New(runner ports.Runner) (*Watcher, error) {
	fw, err := newFsnotifyWatcher()
	if err != nil {
		return nil, err
	}
	return newWatcher(runner, fw), nil
}

func newWatcher(runner ports.Runner, fw FileWatcher) *Watcher {
	return &Watcher{
		fw:       fw,
		runner:   runner,
		logger:   logger.Named("core.watcher"),
		watchMap: make(map[string]*check.Check),
		dirRefs:  make(map[string]int),
		debounce: make(map[string]*time.Timer),
	}
}

// Start begins the file watching process. It is idempotent and will do
// nothing if the watcher is already running. Once stopped with Stop(), the
// watcher cannot be restarted.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fw == nil {
		w.logger.Warn("Watcher has been stopped and cannot be restarted")
		return
	}
	if w.running {
		w.logger.Info("Watcher is already running")
		return
	}

	w.logger.Info("Starting config watcher")
	go w.watchLoop()
	w.running = true
}

// Stop halts the file watching process. It is idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fw == nil || !w.running {
		return
	}
	w.logger.Info("Stopping config watcher")
	w.fw.Close()
	w.fw = nil
	w.running = false
}

// AddCheck watches the check's config path. Checks without one are skipped.
// The parent directory is watched rather than the file itself, so atomic
// replace (write to temp, rename over) is still observed.
func (w *Watcher) AddCheck(c *check.Check) error {
	if c.ConfigPath == "" {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fw == nil {
		return nil
	}

	path := filepath.Clean(c.ConfigPath)
	if old, ok := w.watchMap[path]; ok && old.Name != c.Name {
		w.logger.Warn("Config path already watched by another check",
			zap.String("path", path),
			zap.String("check", old.Name))
	}

	dir := filepath.Dir(path)
	if w.dirRefs[dir] == 0 {
		if err := w.fw.Add(dir); err != nil {
			return err
		}
	}
	w.dirRefs[dir]++
	w.watchMap[path] = c
	w.logger.Info("Watching config file",
		zap.String("check", c.Name),
		zap.String("path", path))
	return nil
}

// RemoveCheck stops watching the named check's config path.
func (w *Watcher) RemoveCheck(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, c := range w.watchMap {
		if c.Name != name {
			continue
		}
		delete(w.watchMap, path)
		dir := filepath.Dir(path)
		w.dirRefs[dir]--
		if w.dirRefs[dir] <= 0 {
			delete(w.dirRefs, dir)
			if w.fw != nil {
				_ = w.fw.Remove(dir)
			}
		}
		w.logger.Info("Stopped watching config file",
			zap.String("check", name),
			zap.String("path", path))
	}
}

func (w *Watcher) watchLoop() {
	// Capture the watcher to avoid racing Stop() setting w.fw to nil.
	fw := w.fw
	if fw == nil {
		return
	}

	for {
		select {
		case event, ok := <-fw.Events():
			if !ok {
				return
			}
			// Chmod is noise.
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			w.handleEvent(event)
		case err, ok := <-fw.Errors():
			if !ok {
				return
			}
			w.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, ok := w.watchMap[filepath.Clean(event.Name)]
	if !ok {
		return
	}
	w.triggerRun(c)
}

// triggerRun debounces config-change runs per check. Called with the lock held.
func (w *Watcher) triggerRun(c *check.Check) {
	if timer, ok := w.debounce[c.Name]; ok {
		timer.Stop()
	}

	w.debounce[c.Name] = time.AfterFunc(debounceDelay, func() {
		w.logger.Info("Config changed, re-running check", zap.String("check", c.Name))
		if err := w.runner.StartCheck(c, check.TriggerConfig); err != nil {
			w.logger.Error("Failed to start check after config change",
				zap.String("check", c.Name),
				zap.Error(err))
		}
	})
}

var _ ports.Watcher = (*Watcher)(nil)
