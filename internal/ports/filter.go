package ports

// Filter returns the subset of files that are currently eligible. Filters may
// hold de-duplication state and must be safe for concurrent use.
type Filter interface {
	Filter(files []string) []string
}

// ResettableFilter can forget a file, so a later re-creation of the same path
// is not suppressed as a duplicate. The watch scanner calls Remove on delete.
type ResettableFilter interface {
	Filter
	Remove(file string) bool
}

// DiscardAwareFilter reports files it rejected only for now (e.g. too young),
// so an event-driven scanner can keep them for the next round.
type DiscardAwareFilter interface {
	Filter
	OnDiscard(fn func(file string))
}
