// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

// MetadataStore is a flat string key/value store used by persistent filters to
// remember which files have already been accepted. The backing store (bbolt)
// keeps one bucket per store; concurrent callers are safe.
//
// Crash safety: every mutating call is its own transaction.
type MetadataStore interface {
	// Get returns the value for key, or "", false if absent.
	Get(key string) (string, bool, error)

	// PutIfAbsent stores value under key unless a value is already present.
	// Returns the previous value and true if one existed (nothing is written).
	PutIfAbsent(key, value string) (string, bool, error)

	// Replace swaps oldValue for newValue atomically. Returns false if the
	// current value is not oldValue.
	Replace(key, oldValue, newValue string) (bool, error)

	// Remove deletes key. Returns the removed value, or "", false if absent.
	Remove(key string) (string, bool, error)
}
