package watcher

import (
	"github.com/fsnotify/fsnotify"
)

// fsnotifyWatcher adapts *fsnotify.Watcher to the FileWatcher interface
// (fsnotify exposes its channels as struct fields).
type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func newFsnotifyWatcher() (FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &fsnotifyWatcher{w: w}, nil
}

func (f *fsnotifyWatcher) Add(path string) error    { return f.w.Add(path) }
func (f *fsnotifyWatcher) Remove(path string) error { return f.w.Remove(path) }
func (f *fsnotifyWatcher) Close() error             { return f.w.Close() }

func (f *fsnotifyWatcher) Events() chan fsnotify.Event { return f.w.Events }
func (f *fsnotifyWatcher) Errors() chan error          { return f.w.Errors }
