// intake hands out files dropped into a directory, one consumer at a time.
package main

import (
	"os"

	"github.com/corey/intake/cmd/intake/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
