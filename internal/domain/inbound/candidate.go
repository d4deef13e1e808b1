// Package inbound turns a directory into a stream of files for polling consumers.
// A Source pairs a Scanner (snapshot listing or filesystem watch) with an
// ordered in-memory Queue and an optional Locker, so each discovered file is
// handed out at most once unless it is returned through OnFailure.
package inbound

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Candidate is a discovered file together with the root it was found under.
// ModTime is captured once when the candidate is enqueued so that ordering
// never touches the filesystem; zero means the file could not be stat'ed.
type Candidate struct {
	File    string
	Root    string
	ModTime time.Time
}

// stamped returns c with ModTime read from disk.
func stamped(c Candidate) Candidate {
	if info, err := os.Stat(c.File); err == nil {
		c.ModTime = info.ModTime()
	}
	return c
}

// RelativePath returns File relative to Root. Falls back to the base name
// when File does not live under Root.
func (c Candidate) RelativePath() string {
	rel, err := filepath.Rel(c.Root, c.File)
	if err != nil || outside(rel) {
		return filepath.Base(c.File)
	}
	return rel
}

// outside reports whether a filepath.Rel result climbs out of its base.
// Names that merely start with dots, like "..d", are inside.
func outside(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Comparator is a total order over candidates. Negative means a sorts first.
type Comparator func(a, b Candidate) int

// NaturalOrder sorts candidates by file path.
func NaturalOrder(a, b Candidate) int {
	return strings.Compare(a.File, b.File)
}

// NewestFirst sorts by the modification time captured at enqueue, newest
// first, ties broken by path. Candidates without a time sort last.
func NewestFirst(a, b Candidate) int {
	return compareModTime(a, b, true)
}

// OldestFirst sorts by the modification time captured at enqueue, oldest
// first, ties broken by path.
func OldestFirst(a, b Candidate) int {
	return compareModTime(a, b, false)
}
