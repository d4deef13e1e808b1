package filter

import "github.com/corey/intake/internal/ports"

// Composite chains filters: each one sees only what the previous one
// accepted. Order matters, so put cheap name filters first and accept-once
// filters last.
type Composite struct {
	filters []ports.Filter
}

// NewComposite chains filters in order. Nil entries are skipped.
func NewComposite(filters ...ports.Filter) *Composite {
	c := &Composite{}
	for _, f := range filters {
		if f != nil {
			c.filters = append(c.filters, f)
		}
	}
	return c
}

// Filter implements ports.Filter.
func (c *Composite) Filter(files []string) []string {
	out := files
	for _, f := range c.filters {
		if len(out) == 0 {
			return nil
		}
		out = f.Filter(out)
	}
	return out
}

// Remove implements ports.ResettableFilter by resetting every member that
// supports it. Returns true if any member forgot the file.
func (c *Composite) Remove(file string) bool {
	removed := false
	for _, f := range c.filters {
		if r, ok := f.(ports.ResettableFilter); ok && r.Remove(file) {
			removed = true
		}
	}
	return removed
}

// OnDiscard implements ports.DiscardAwareFilter by subscribing fn to every
// member that discards.
func (c *Composite) OnDiscard(fn func(file string)) {
	for _, f := range c.filters {
		if d, ok := f.(ports.DiscardAwareFilter); ok {
			d.OnDiscard(fn)
		}
	}
}

// Len returns the number of chained filters.
func (c *Composite) Len() int {
	return len(c.filters)
}
