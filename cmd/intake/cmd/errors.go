package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/corey/intake/internal/adapters/socket"
	"github.com/corey/intake/internal/config"
)

// isDBLockError returns true if the error chain contains a bbolt lock timeout.
// bbolt returns the string "timeout" when it cannot acquire the file lock
// within the configured deadline.
func isDBLockError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "timeout")
}

// diagnoseDBLock explains who probably holds the metadata store: a live
// daemon, a crashed one that left its socket behind, or something else.
func diagnoseDBLock(cfg *config.Config) string {
	sockPath := socketPath(cfg)
	client := socket.NewClient(sockPath)

	if client.Ping() {
		return fmt.Sprintf("metadata store %s is locked by the running daemon\n"+
			"  -> stop it first:  intake daemon stop", cfg.Filter.StorePath)
	}

	if _, err := os.Stat(sockPath); err == nil {
		return fmt.Sprintf("metadata store is locked and the daemon socket is not responding\n"+
			"  -> a previous daemon may have crashed\n"+
			"  -> find the process:  ps aux | grep 'intake daemon'\n"+
			"  -> clean up socket:   rm %s", sockPath)
	}

	return fmt.Sprintf("metadata store %s is locked by another process\n"+
		"  -> is another daemon using the same store_path?", cfg.Filter.StorePath)
}
