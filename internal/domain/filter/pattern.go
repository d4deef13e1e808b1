package filter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Glob accepts files whose base name matches a filepath.Match pattern.
type Glob struct {
	pattern string
}

// NewGlob validates pattern up front so Filter cannot fail later.
func NewGlob(pattern string) (*Glob, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	return &Glob{pattern: pattern}, nil
}

// Filter implements ports.Filter.
func (g *Glob) Filter(files []string) []string {
	var out []string
	for _, f := range files {
		if ok, _ := filepath.Match(g.pattern, filepath.Base(f)); ok {
			out = append(out, f)
		}
	}
	return out
}

// Regexp accepts files whose base name matches a regular expression.
type Regexp struct {
	re *regexp.Regexp
}

// NewRegexp compiles expr.
func NewRegexp(expr string) (*Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("regex %q: %w", expr, err)
	}
	return &Regexp{re: re}, nil
}

// Filter implements ports.Filter.
func (r *Regexp) Filter(files []string) []string {
	var out []string
	for _, f := range files {
		if r.re.MatchString(filepath.Base(f)) {
			out = append(out, f)
		}
	}
	return out
}

// IgnoreHidden rejects dot-files.
type IgnoreHidden struct{}

// Filter implements ports.Filter.
func (IgnoreHidden) Filter(files []string) []string {
	var out []string
	for _, f := range files {
		if !IsHidden(f) {
			out = append(out, f)
		}
	}
	return out
}

// IsHidden reports whether the base name of path starts with a dot.
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
