package fsnotify

import "github.com/fsnotify/fsnotify"

// notifier is the slice of *fsnotify.Watcher the scanner uses. Tests swap in
// a fake to inject events and overflows deterministically.
type notifier interface {
	Add(path string) error
	Remove(path string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

// fsNotifier adapts *fsnotify.Watcher, whose channels are struct fields.
type fsNotifier struct {
	w *fsnotify.Watcher
}

// newFSNotifier opens an inotify/kqueue/ReadDirectoryChangesW watcher. With a
// positive buffer, events queue in the channel between List calls instead of
// backing up into the kernel.
func newFSNotifier(buffer uint) (notifier, error) {
	var (
		w   *fsnotify.Watcher
		err error
	)
	if buffer > 0 {
		w, err = fsnotify.NewBufferedWatcher(buffer)
	} else {
		w, err = fsnotify.NewWatcher()
	}
	if err != nil {
		return nil, err
	}
	return &fsNotifier{w: w}, nil
}

func (n *fsNotifier) Add(path string) error         { return n.w.Add(path) }
func (n *fsNotifier) Remove(path string) error      { return n.w.Remove(path) }
func (n *fsNotifier) Close() error                  { return n.w.Close() }
func (n *fsNotifier) Events() <-chan fsnotify.Event { return n.w.Events }
func (n *fsNotifier) Errors() <-chan error          { return n.w.Errors }
