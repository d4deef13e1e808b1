package inbound

import (
	"fmt"
	"strings"
)

// ComparatorByName maps a configured order name to a Comparator.
// Accepted: "name" (default), "oldest", "newest".
func ComparatorByName(name string) (Comparator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "name", "path":
		return NaturalOrder, nil
	case "oldest":
		return OldestFirst, nil
	case "newest":
		return NewestFirst, nil
	default:
		return nil, fmt.Errorf("unknown order %q", name)
	}
}

func compareModTime(a, b Candidate, newestFirst bool) int {
	az, bz := a.ModTime.IsZero(), b.ModTime.IsZero()
	switch {
	case az && bz:
		return strings.Compare(a.File, b.File)
	case az:
		return 1
	case bz:
		return -1
	}
	if c := a.ModTime.Compare(b.ModTime); c != 0 {
		if newestFirst {
			return -c
		}
		return c
	}
	return strings.Compare(a.File, b.File)
}
