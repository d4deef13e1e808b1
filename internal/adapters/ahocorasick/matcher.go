// Package ahocorasick provides keyword filters on file names backed by an
// Aho-Corasick automaton, so any number of keywords costs one pass per name.
package ahocorasick

import (
	"path/filepath"

	aho "github.com/petar-dambovaliev/aho-corasick"
)

// Matcher reports which keywords occur in a string. Matching is ASCII
// case-insensitive. The zero value matches nothing.
type Matcher struct {
	automaton aho.AhoCorasick
	keywords  []string
	built     bool
}

// NewMatcher compiles the automaton for keywords. Empty keywords are dropped.
func NewMatcher(keywords []string) *Matcher {
	m := &Matcher{}
	m.Build(keywords)
	return m
}

// Build compiles the Aho-Corasick automaton from the given keywords.
func (m *Matcher) Build(keywords []string) {
	m.keywords = m.keywords[:0]
	for _, kw := range keywords {
		if kw != "" {
			m.keywords = append(m.keywords, kw)
		}
	}
	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		AsciiCaseInsensitive: true,
		DFA:                  true,
	})
	m.automaton = builder.Build(m.keywords)
	m.built = true
}

// Len returns the number of compiled keywords.
func (m *Matcher) Len() int {
	return len(m.keywords)
}

// Any reports whether at least one keyword occurs in s.
func (m *Matcher) Any(s string) bool {
	if !m.built || len(m.keywords) == 0 {
		return false
	}
	return len(m.automaton.FindAll(s)) > 0
}

// Match returns the distinct keywords found in s, in order of first match.
func (m *Matcher) Match(s string) []string {
	if !m.built || len(m.keywords) == 0 {
		return nil
	}
	matches := m.automaton.FindAll(s)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]bool, len(matches))
	var result []string
	for i := range matches {
		p := matches[i].Pattern()
		if !seen[p] {
			seen[p] = true
			result = append(result, m.keywords[p])
		}
	}
	return result
}

// NameFilter implements ports.Filter on base names. In include mode a file
// passes when its name contains any keyword; in exclude mode when it
// contains none.
type NameFilter struct {
	matcher *Matcher
	exclude bool
}

// NewNameFilter returns a filter passing names that contain a keyword.
func NewNameFilter(keywords []string) *NameFilter {
	return &NameFilter{matcher: NewMatcher(keywords)}
}

// NewExcludeFilter returns a filter dropping names that contain a keyword.
func NewExcludeFilter(keywords []string) *NameFilter {
	return &NameFilter{matcher: NewMatcher(keywords), exclude: true}
}

// Filter implements ports.Filter.
func (f *NameFilter) Filter(files []string) []string {
	out := files[:0:0]
	for _, file := range files {
		if f.matcher.Any(filepath.Base(file)) != f.exclude {
			out = append(out, file)
		}
	}
	return out
}
