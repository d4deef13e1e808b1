// Package dirlist implements ports.Scanner with a synchronous directory walk
// on every call. It keeps no memory between calls; de-duplication is left to
// the Filter.
package dirlist

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/corey/intake/internal/ports"
)

// Options configures a Scanner.
type Options struct {
	Filter    ports.Filter // nil accepts every file
	Recursive bool         // descend into subdirectories
	// DirPredicate, when set, is consulted before descending into a
	// subdirectory. Returning false skips the subtree.
	DirPredicate func(dir string) bool
	Logger       *slog.Logger
}

// Scanner lists a directory tree on demand.
type Scanner struct {
	filter       ports.Filter
	recursive    bool
	dirPredicate func(string) bool
	logger       *slog.Logger
}

// New creates a snapshot scanner.
func New(opts Options) *Scanner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		filter:       opts.Filter,
		recursive:    opts.Recursive,
		dirPredicate: opts.DirPredicate,
		logger:       logger.With("component", "dirlist"),
	}
}

// List implements ports.Scanner. Errors reading dir are logged and produce
// an empty result; unreadable entries below it are skipped.
func (s *Scanner) List(dir string) []string {
	files, err := s.walk(dir)
	if err != nil {
		s.logger.Warn("list directory", "dir", dir, "error", err)
		return nil
	}
	if s.filter == nil || len(files) == 0 {
		return files
	}
	return s.filter.Filter(files)
}

func (s *Scanner) walk(dir string) ([]string, error) {
	if !s.recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, e := range entries {
			if e.Type().IsRegular() {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
		return files, nil
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Debug("skip entry", "path", path, "error", err)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != dir && s.dirPredicate != nil && !s.dirPredicate(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
