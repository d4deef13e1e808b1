// Package fsnotify implements ports.WatchingScanner using github.com/fsnotify/fsnotify.
// It registers a directory tree recursively, keeps a working set of files fed
// by create/modify/delete notifications, and hands that set out on List.
// Notifications are drained synchronously inside List rather than on a
// background goroutine, so event processing lines up with poll cycles.
package fsnotify

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/corey/intake/internal/metrics"
	"github.com/corey/intake/internal/ports"
)

// DefaultBufferSize is the notification channel size when none is
// configured. List drains without blocking, so an unbuffered channel would
// yield at most one event per call.
const DefaultBufferSize = 4096

// Options configures a Scanner.
type Options struct {
	// Events selects which changes add or remove files. Zero means Create.
	Events EventKind
	// MaxDepth bounds how far below the root directories are registered.
	// Files at depth MaxDepth are still seen; 0 means unlimited.
	MaxDepth int
	// DirPredicate is consulted before a subdirectory is registered and
	// walked. Returning false prunes the subtree. Nil accepts all.
	DirPredicate func(dir string) bool
	// Filter is applied to the working set on List. Nil accepts all.
	Filter ports.Filter
	// BufferSize sizes the notification channel that queues events between
	// List calls; 0 means DefaultBufferSize.
	BufferSize uint
	Logger     *slog.Logger
}

// Scanner implements ports.WatchingScanner.
type Scanner struct {
	events       EventKind
	maxDepth     int
	dirPredicate func(string) bool
	filter       ports.Filter
	bufferSize   uint
	logger       *slog.Logger
	newNotifier  func(buffer uint) (notifier, error)

	working *fileSet // files believed eligible, drained by List

	mu      sync.Mutex // guards everything below
	n       notifier
	root    string
	watched map[string]struct{} // registration table: one entry per directory
}

// NewScanner creates a stopped watch scanner.
func NewScanner(opts Options) *Scanner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	events := opts.Events
	if events == 0 {
		events = DefaultEvents
	}
	bufferSize := opts.BufferSize
	if bufferSize == 0 {
		bufferSize = DefaultBufferSize
	}
	s := &Scanner{
		events:       events,
		maxDepth:     opts.MaxDepth,
		dirPredicate: opts.DirPredicate,
		filter:       opts.Filter,
		bufferSize:   bufferSize,
		logger:       logger.With("component", "watch"),
		newNotifier:  newFSNotifier,
		working:      newFileSet(),
		watched:      make(map[string]struct{}),
	}
	// Files a filter rejects only for now stay in the working set so the
	// next List looks at them again.
	if d, ok := opts.Filter.(ports.DiscardAwareFilter); ok {
		d.OnDiscard(s.keep)
	}
	return s
}

// keep puts a discarded file back into the working set. Filtering runs
// outside s.mu, so a Stop or a move to another root may have happened in
// between; files that no longer belong to the watched root are dropped.
func (s *Scanner) keep(file string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n == nil || !within(s.root, file) {
		return
	}
	s.working.add(file)
}

// Start opens the notifier, registers dir and its eligible subdirectories,
// and seeds the working set with every file already present.
// Starting a running scanner on the same directory is a no-op.
func (s *Scanner) Start(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.n != nil {
		if s.root == abs {
			return nil
		}
		s.closeLocked()
	}

	n, err := s.newNotifier(s.bufferSize)
	if err != nil {
		return err
	}
	s.n = n
	s.root = abs
	s.working.reset()

	s.walk(abs, true)
	s.drainEvents()

	s.logger.Info("watching directory", "dir", abs, "events", s.events.String(), "registrations", len(s.watched))
	return nil
}

// Stop cancels every registration, closes the notifier and clears all
// in-memory state. Safe to call multiple times.
func (s *Scanner) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

// Dir returns the watched root, or "" when stopped.
func (s *Scanner) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Registrations returns the number of directories currently registered.
func (s *Scanner) Registrations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watched)
}

// List implements ports.Scanner. It applies pending notifications to the
// working set, drains it, and returns the filtered result. Nothing is
// returned twice unless a later event adds it again.
func (s *Scanner) List(dir string) []string {
	s.mu.Lock()
	if s.n == nil {
		s.mu.Unlock()
		return nil
	}
	s.drainEvents()
	files := s.working.drain()
	s.mu.Unlock()

	if s.filter == nil || len(files) == 0 {
		return files
	}
	return s.filter.Filter(files)
}

func (s *Scanner) closeLocked() error {
	if s.n == nil {
		return nil
	}
	for dir := range s.watched {
		if err := s.n.Remove(dir); err != nil {
			s.logger.Debug("remove watch", "dir", dir, "error", err)
		}
	}
	clear(s.watched)
	metrics.WatchRegistrationsGauge.Set(0)

	err := s.n.Close()
	if err != nil {
		s.logger.Error("close watcher", "dir", s.root, "error", err)
	}
	s.n = nil
	s.root = ""
	s.working.reset()
	return err
}

// drainEvents applies every notification already delivered, without
// blocking. An overflow anywhere in the batch triggers a full resync once
// the batch is consumed, so it always wins over incremental updates.
func (s *Scanner) drainEvents() {
	var overflow *OverflowError
	events, errs := s.n.Events(), s.n.Errors()

	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handleEvent(ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			var oe *OverflowError
			switch {
			case errors.As(err, &oe):
				overflow = oe
			case errors.Is(err, fsnotify.ErrEventOverflow):
				overflow = &OverflowError{}
			default:
				s.logger.Error("watcher error", "dir", s.root, "error", err)
			}
		default:
			events, errs = nil, nil
		}
	}

	if overflow != nil {
		s.resync(overflow.Path)
	}
}

func (s *Scanner) handleEvent(ev fsnotify.Event) {
	if ev.Name == "" {
		return
	}
	path := filepath.Clean(ev.Name)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// A rename reports the old name; the new name arrives as Create.
		if s.events.Has(Delete) {
			metrics.WatchEventsCounterVec.WithLabelValues("delete").Inc()
			s.logger.Debug("watch event", "kind", "delete", "path", path)
			s.handleDelete(path)
		}
	case ev.Has(fsnotify.Create):
		if s.events.Has(Create) {
			metrics.WatchEventsCounterVec.WithLabelValues("create").Inc()
			s.logger.Debug("watch event", "kind", "create", "path", path)
			s.handleUpsert(path, true)
		}
	case ev.Has(fsnotify.Write):
		if s.events.Has(Modify) {
			metrics.WatchEventsCounterVec.WithLabelValues("modify").Inc()
			s.logger.Debug("watch event", "kind", "modify", "path", path)
			s.handleUpsert(path, false)
		}
	}
}

// handleDelete drops path's registration (and any below it), tells the
// filter to forget it, and removes it from the working set.
func (s *Scanner) handleDelete(path string) {
	prefix := path + string(filepath.Separator)
	for dir := range s.watched {
		if dir == path || strings.HasPrefix(dir, prefix) {
			s.unregister(dir)
		}
	}

	if r, ok := s.filter.(ports.ResettableFilter); ok {
		r.Remove(path)
	}

	if n := s.working.removeTree(path); n > 0 {
		s.logger.Debug("removed from working set because of delete event", "path", path, "count", n)
	}
}

// handleUpsert reacts to a create (addFiles) or modify of path.
func (s *Scanner) handleUpsert(path string, addFiles bool) {
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Debug("event path does not exist, ignored", "path", path, "error", err)
		return
	}
	if info.IsDir() {
		s.walk(path, addFiles)
		return
	}
	if !info.Mode().IsRegular() {
		return
	}
	// A set: create followed by modify still yields a single entry.
	s.working.add(path)
}

// resync handles an overflow: all registrations are cancelled and the tree
// is walked again from scratch. With a context path only that subtree is
// rebuilt; the rest of the tree is re-registered without re-adding files.
func (s *Scanner) resync(contextPath string) {
	metrics.WatchOverflowCounter.Inc()
	s.logger.Warn("notification overflow, resynchronizing", "dir", s.root, "context", contextPath)

	for dir := range s.watched {
		s.unregister(dir)
	}

	start := s.root
	if contextPath != "" {
		if abs, err := filepath.Abs(contextPath); err == nil && within(s.root, abs) {
			start = abs
		}
	}

	if start == s.root {
		s.working.reset()
		s.walk(s.root, true)
		return
	}
	s.working.removeTree(start)
	s.walk(s.root, false)
	s.walk(start, true)
}

// walk registers start and every eligible directory below it. Files are
// added to the working set only when addFiles is set: a walk triggered by a
// modify registers new directories but must not re-offer their files.
func (s *Scanner) walk(start string, addFiles bool) {
	if start != s.root && !s.shouldDescend(start) {
		return
	}
	s.register(start)

	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Debug("walk entry", "path", path, "error", err)
			}
			if path == start {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path == start {
				return nil
			}
			if !s.shouldDescend(path) {
				return filepath.SkipDir
			}
			s.register(path)
			return nil
		}
		if addFiles && d.Type().IsRegular() {
			s.working.add(path)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("walk directory", "dir", start, "error", err)
	}
}

// shouldDescend applies the depth bound and the directory predicate.
func (s *Scanner) shouldDescend(dir string) bool {
	if s.maxDepth > 0 && depth(s.root, dir) >= s.maxDepth {
		return false
	}
	return s.dirPredicate == nil || s.dirPredicate(dir)
}

func (s *Scanner) register(dir string) {
	if _, ok := s.watched[dir]; ok {
		return
	}
	if err := s.n.Add(dir); err != nil {
		s.logger.Error("register watch", "dir", dir, "error", err)
		return
	}
	s.watched[dir] = struct{}{}
	metrics.WatchRegistrationsGauge.Set(float64(len(s.watched)))
	s.logger.Debug("registered for file events", "dir", dir)
}

func (s *Scanner) unregister(dir string) {
	if _, ok := s.watched[dir]; !ok {
		return
	}
	delete(s.watched, dir)
	// The kernel drops the watch of a deleted directory on its own, so a
	// failure here is expected after a delete.
	if err := s.n.Remove(dir); err != nil {
		s.logger.Debug("remove watch", "dir", dir, "error", err)
	}
	metrics.WatchRegistrationsGauge.Set(float64(len(s.watched)))
}

// depth counts path components of path below root; root itself is 0.
func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func within(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

// SkipHidden is a DirPredicate that prunes dot-directories.
func SkipHidden(dir string) bool {
	return !strings.HasPrefix(filepath.Base(dir), ".")
}

// IgnoreDirs returns a DirPredicate that prunes directories with the given
// base names, e.g. IgnoreDirs(".git", "tmp").
func IgnoreDirs(names ...string) func(string) bool {
	ignore := make(map[string]bool, len(names))
	for _, n := range names {
		ignore[n] = true
	}
	return func(dir string) bool {
		return !ignore[filepath.Base(dir)]
	}
}

// fileSet is the working set: a mutex-guarded set of paths. It has its own
// lock because discard callbacks add to it while a List is filtering.
type fileSet struct {
	mu    sync.Mutex
	files map[string]struct{}
}

func newFileSet() *fileSet {
	return &fileSet{files: make(map[string]struct{})}
}

func (f *fileSet) add(path string) {
	f.mu.Lock()
	f.files[path] = struct{}{}
	f.mu.Unlock()
}

// removeTree removes path and everything below it. Returns how many
// entries went away.
func (f *fileSet) removeTree(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := path + string(filepath.Separator)
	n := 0
	for p := range f.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(f.files, p)
			n++
		}
	}
	return n
}

// drain empties the set and returns its contents in path order.
func (f *fileSet) drain() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.files) == 0 {
		return nil
	}
	out := make([]string, 0, len(f.files))
	for p := range f.files {
		out = append(out, p)
	}
	clear(f.files)
	sort.Strings(out)
	return out
}

func (f *fileSet) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

func (f *fileSet) reset() {
	f.mu.Lock()
	clear(f.files)
	f.mu.Unlock()
}
