package inbound

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/corey/intake/internal/metrics"
	"github.com/corey/intake/internal/ports"
)

// Directory validation errors returned by Start.
var (
	ErrDirectoryNotExist    = errors.New("source directory does not exist")
	ErrNotDirectory         = errors.New("source path is not a directory")
	ErrDirectoryNotReadable = errors.New("source directory is not readable")
)

// Config holds the collaborators and switches of a Source.
type Config struct {
	Directory           DirectoryResolver
	Scanner             ports.Scanner // required
	Locker              ports.Locker  // optional: nil claims every file
	Comparator          Comparator    // optional: nil means NaturalOrder
	AutoCreateDirectory bool          // create a static directory on Start if missing
	ScanEachPoll        bool          // rescan on every Receive, not only when the queue is empty
	Logger              *slog.Logger
}

// Stats is a point-in-time view of a Source.
type Stats struct {
	Running    bool
	Directory  string
	QueueDepth int
	Scans      int64
	Enqueued   int64
	Received   int64
	Refused    int64
	Requeued   int64
}

// Source hands out files from a directory one at a time.
// It owns no goroutine: callers drive it through Receive, from one
// goroutine or many.
type Source struct {
	dir          DirectoryResolver
	scanner      ports.Scanner
	watcher      ports.WatchingScanner // scanner, when event-driven
	locker       ports.Locker
	queue        *Queue
	autoCreate   bool
	scanEachPoll bool
	logger       *slog.Logger

	running     atomic.Bool
	lifecycleMu sync.Mutex // serializes Start/Stop
	switchMu    sync.Mutex // serializes watched-directory changes

	lastDir  atomic.Value // string
	scans    atomic.Int64
	enqueued atomic.Int64
	received atomic.Int64
	refused  atomic.Int64
	requeued atomic.Int64
}

// NewSource validates cfg and builds a stopped Source.
func NewSource(cfg Config) (*Source, error) {
	if cfg.Directory == nil {
		return nil, fmt.Errorf("directory required")
	}
	if cfg.Scanner == nil {
		return nil, fmt.Errorf("scanner required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Source{
		dir:          cfg.Directory,
		scanner:      cfg.Scanner,
		locker:       cfg.Locker,
		queue:        NewQueue(cfg.Comparator),
		autoCreate:   cfg.AutoCreateDirectory,
		scanEachPoll: cfg.ScanEachPoll,
		logger:       logger.With("component", "inbound"),
	}
	if ws, ok := cfg.Scanner.(ports.WatchingScanner); ok {
		s.watcher = ws
	}
	s.lastDir.Store("")
	return s, nil
}

// Start validates (and optionally creates) the directory and starts the
// watching scanner, if any. Calling Start on a running Source is a no-op.
// Failing to open the watch itself is logged, not returned: the source
// keeps serving whatever is already queued.
func (s *Source) Start() error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.running.Load() {
		return nil
	}

	dir, err := s.dir.Resolve()
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}
	if s.dir.Static() {
		if err := prepareDirectory(dir, s.autoCreate); err != nil {
			return err
		}
	}
	s.lastDir.Store(dir)

	if s.watcher != nil {
		s.switchMu.Lock()
		if err := s.watcher.Start(dir); err != nil {
			s.logger.Error("start watch", "dir", dir, "error", err)
		}
		s.switchMu.Unlock()
	}

	s.running.Store(true)
	s.logger.Info("source started", "dir", dir, "watch", s.watcher != nil)
	return nil
}

// Stop stops the watching scanner. Queued candidates are kept.
// Calling Stop on a stopped Source is a no-op.
func (s *Source) Stop() error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)

	if s.watcher != nil {
		s.switchMu.Lock()
		err := s.watcher.Stop()
		s.switchMu.Unlock()
		if err != nil {
			s.logger.Error("stop watch", "error", err)
		}
	}
	s.logger.Info("source stopped")
	return nil
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Source) IsRunning() bool {
	return s.running.Load()
}

// Receive returns the next claimable file, or false when nothing is
// available right now. It never blocks waiting for new files.
func (s *Source) Receive() (*Message, bool) {
	if s.scanEachPoll || s.queue.Empty() {
		s.scan()
	}

	for {
		c, ok := s.queue.Poll()
		if !ok {
			metrics.QueueDepthGauge.Set(0)
			return nil, false
		}
		if s.locker != nil && !s.locker.Lock(c.File) {
			s.refused.Add(1)
			metrics.ClaimsRefusedCounter.Inc()
			s.logger.Debug("claim refused", "path", c.File)
			continue
		}
		s.received.Add(1)
		metrics.MessagesReceivedCounter.Inc()
		metrics.QueueDepthGauge.Set(float64(s.queue.Len()))
		return NewMessage(c), true
	}
}

// OnFailure puts the file of a message whose delivery failed back on the
// queue so a later Receive offers it again. The root is recovered from the
// relative-path header when present. Best effort: the queue is in memory.
func (s *Source) OnFailure(msg *Message) {
	if msg == nil || msg.Payload == "" {
		return
	}
	c := stamped(candidateFor(msg))
	s.logger.Warn("failed to send", "path", c.File, "message_id", msg.ID)
	s.queue.Add(c)
	s.requeued.Add(1)
	metrics.RequeueCounter.Inc()
	metrics.QueueDepthGauge.Set(float64(s.queue.Len()))
}

// Stats returns counters and the current queue depth.
func (s *Source) Stats() Stats {
	return Stats{
		Running:    s.running.Load(),
		Directory:  s.lastDir.Load().(string),
		QueueDepth: s.queue.Len(),
		Scans:      s.scans.Load(),
		Enqueued:   s.enqueued.Load(),
		Received:   s.received.Load(),
		Refused:    s.refused.Load(),
		Requeued:   s.requeued.Load(),
	}
}

// scan resolves the directory, lists eligible files and enqueues them.
func (s *Source) scan() {
	dir, err := s.dir.Resolve()
	if err != nil {
		s.logger.Error("resolve directory", "error", err)
		return
	}

	if s.watcher != nil {
		// Watching only happens between Start and Stop; outside that window
		// the queue is still drained but no new files are discovered.
		if !s.running.Load() {
			return
		}
		s.switchMu.Lock()
		if s.watcher.Dir() != dir {
			s.logger.Info("directory changed, moving watch", "from", s.watcher.Dir(), "to", dir)
			if err := s.watcher.Stop(); err != nil {
				s.logger.Error("stop watch", "error", err)
			}
			if err := s.watcher.Start(dir); err != nil {
				s.logger.Error("start watch", "dir", dir, "error", err)
			}
		}
		s.switchMu.Unlock()
	}
	s.lastDir.Store(dir)

	files := s.scanner.List(dir)
	s.scans.Add(1)
	metrics.ScanTotalCounterVec.WithLabelValues(s.scannerKind()).Inc()

	for _, f := range files {
		s.queue.Add(stamped(Candidate{File: f, Root: dir}))
	}
	if len(files) > 0 {
		s.enqueued.Add(int64(len(files)))
		metrics.FilesEnqueuedCounter.Add(float64(len(files)))
		metrics.QueueDepthGauge.Set(float64(s.queue.Len()))
		s.logger.Debug("added to queue", "dir", dir, "count", len(files))
	}
}

func (s *Source) scannerKind() string {
	if s.watcher != nil {
		return "watch"
	}
	return "snapshot"
}

// prepareDirectory makes sure dir exists, is a directory and can be read.
func prepareDirectory(dir string, autoCreate bool) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) && autoCreate {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
		info, err = os.Stat(dir)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrDirectoryNotExist, dir)
	}
	if err != nil {
		return fmt.Errorf("stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDirectoryNotReadable, dir, err)
	}
	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		f.Close()
		return fmt.Errorf("%w: %s: %v", ErrDirectoryNotReadable, dir, err)
	}
	return f.Close()
}
