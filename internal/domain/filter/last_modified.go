package filter

import (
	"os"
	"sync"
	"time"
)

// LastModified accepts files that have not been modified for at least Age,
// so writers get a chance to finish. Younger files are reported to discard
// callbacks rather than forgotten.
type LastModified struct {
	age time.Duration
	now func() time.Time

	mu        sync.Mutex
	callbacks []func(string)
}

// NewLastModified returns a filter with the given minimum age.
func NewLastModified(age time.Duration) *LastModified {
	return &LastModified{age: age, now: time.Now}
}

// OnDiscard implements ports.DiscardAwareFilter.
func (f *LastModified) OnDiscard(fn func(file string)) {
	f.mu.Lock()
	f.callbacks = append(f.callbacks, fn)
	f.mu.Unlock()
}

// Filter implements ports.Filter. Files that vanished are dropped silently.
func (f *LastModified) Filter(files []string) []string {
	cutoff := f.now().Add(-f.age)
	var out, young []string
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			young = append(young, file)
			continue
		}
		out = append(out, file)
	}

	if len(young) > 0 {
		f.mu.Lock()
		callbacks := append([]func(string){}, f.callbacks...)
		f.mu.Unlock()
		for _, file := range young {
			for _, fn := range callbacks {
				fn(file)
			}
		}
	}
	return out
}
