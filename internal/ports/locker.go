package ports

// Locker claims files exclusively before they are handed to a consumer.
// A false return from Lock means another consumer already owns the file.
// Implementations must be safe for concurrent use.
type Locker interface {
	// Lock tries to claim file without blocking. Claiming a file this locker
	// already holds succeeds.
	Lock(file string) bool

	// Unlock releases a claim. Unlocking an unclaimed file is not an error.
	Unlock(file string) error
}
