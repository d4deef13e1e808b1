package ports

// Scanner produces the files in a directory that are currently eligible for
// delivery. Implementations apply their Filter before returning.
// List never fails: I/O problems are logged and yield fewer (or no) files.
type Scanner interface {
	List(dir string) []string
}

// WatchingScanner is a Scanner fed by filesystem notifications instead of
// repeated listings. Start registers dir recursively and seeds the working set;
// List then drains the working set plus any pending events.
// Only one directory is watched at a time. Stop is safe to call multiple times
// and leaves no registrations behind.
type WatchingScanner interface {
	Scanner

	// Start begins watching dir. Returns an error if the notifier cannot be opened.
	Start(dir string) error

	// Stop cancels all registrations and closes the notifier.
	Stop() error

	// Dir returns the directory currently watched, or "" when stopped.
	Dir() string
}
