// Package filter provides the ports.Filter implementations the daemon can be
// configured with: accept-once de-duplication (in memory or persistent),
// glob and regexp name patterns, hidden-file exclusion, minimum age, and a
// composite that chains them.
package filter

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// AcceptOnce passes each path the first time it is seen and rejects it after.
// With a capacity, the oldest remembered paths are evicted and become
// eligible again.
type AcceptOnce struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	cache *lru.Cache[string, struct{}]
}

// NewAcceptOnce returns an unbounded AcceptOnce filter.
func NewAcceptOnce() *AcceptOnce {
	return &AcceptOnce{seen: make(map[string]struct{})}
}

// NewBoundedAcceptOnce remembers at most capacity paths.
func NewBoundedAcceptOnce(capacity int) (*AcceptOnce, error) {
	cache, err := lru.New[string, struct{}](capacity)
	if err != nil {
		return nil, err
	}
	return &AcceptOnce{cache: cache}, nil
}

// Filter implements ports.Filter.
func (f *AcceptOnce) Filter(files []string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, file := range files {
		if f.cache != nil {
			if f.cache.Contains(file) {
				continue
			}
			f.cache.Add(file, struct{}{})
		} else {
			if _, ok := f.seen[file]; ok {
				continue
			}
			f.seen[file] = struct{}{}
		}
		out = append(out, file)
	}
	return out
}

// Remove implements ports.ResettableFilter.
func (f *AcceptOnce) Remove(file string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cache != nil {
		return f.cache.Remove(file)
	}
	if _, ok := f.seen[file]; !ok {
		return false
	}
	delete(f.seen, file)
	return true
}

// Len returns the number of remembered paths.
func (f *AcceptOnce) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache != nil {
		return f.cache.Len()
	}
	return len(f.seen)
}
