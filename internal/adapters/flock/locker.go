// Package flock implements ports.Locker with advisory file locks
// (flock(2) on Unix, LockFileEx on Windows) via github.com/gofrs/flock.
package flock

import (
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/gofrs/flock"
)

// Locker claims files with non-blocking exclusive locks. A file stays
// claimed until Unlock or Close; claiming it again through the same Locker
// succeeds. Other processes using advisory locks on the same files, or other
// Lockers in this process, are refused.
type Locker struct {
	mu     sync.Mutex
	held   map[string]*flock.Flock
	logger *slog.Logger
}

// NewLocker returns a Locker. A nil logger means slog.Default().
func NewLocker(logger *slog.Logger) *Locker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locker{
		held:   make(map[string]*flock.Flock),
		logger: logger.With("component", "locker"),
	}
}

// Lock implements ports.Locker. It never blocks and never creates the file.
func (l *Locker) Lock(file string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[file]; ok {
		return true
	}

	fl := flock.New(file, flock.SetFlag(os.O_RDONLY))
	ok, err := fl.TryLock()
	if err != nil {
		l.logger.Debug("try lock", "path", file, "error", err)
		return false
	}
	if !ok {
		return false
	}
	l.held[file] = fl
	return true
}

// Unlock implements ports.Locker. Unlocking a file that is not held is a no-op.
func (l *Locker) Unlock(file string) error {
	l.mu.Lock()
	fl, ok := l.held[file]
	delete(l.held, file)
	l.mu.Unlock()

	if !ok {
		return nil
	}
	return fl.Unlock()
}

// IsLocked reports whether this Locker currently holds file.
func (l *Locker) IsLocked(file string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[file]
	return ok
}

// Held returns the number of files currently claimed.
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

// Close releases every lock.
func (l *Locker) Close() error {
	l.mu.Lock()
	held := l.held
	l.held = make(map[string]*flock.Flock)
	l.mu.Unlock()

	var errs []error
	for file, fl := range held {
		if err := fl.Unlock(); err != nil {
			errs = append(errs, err)
			l.logger.Warn("release lock", "path", file, "error", err)
		}
	}
	return errors.Join(errs...)
}
