package fsnotify

import (
	"fmt"
	"strings"
)

// EventKind is a set of filesystem changes the scanner reacts to.
type EventKind uint8

const (
	Create EventKind = 1 << iota
	Modify
	Delete
)

// DefaultEvents is used when no kinds are configured.
const DefaultEvents = Create

// Has reports whether k includes kind.
func (k EventKind) Has(kind EventKind) bool {
	return k&kind != 0
}

func (k EventKind) String() string {
	var parts []string
	if k.Has(Create) {
		parts = append(parts, "create")
	}
	if k.Has(Modify) {
		parts = append(parts, "modify")
	}
	if k.Has(Delete) {
		parts = append(parts, "delete")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseEventKinds turns names like "create", "modify", "delete" into a set.
// An empty list yields DefaultEvents.
func ParseEventKinds(names []string) (EventKind, error) {
	var k EventKind
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "create":
			k |= Create
		case "modify":
			k |= Modify
		case "delete":
			k |= Delete
		default:
			return 0, fmt.Errorf("unknown watch event %q", name)
		}
	}
	if k == 0 {
		return DefaultEvents, nil
	}
	return k, nil
}

// OverflowError reports that the notification buffer dropped events.
// Path, when set, names the directory the overflow was reported for.
// fsnotify itself reports overflows as fsnotify.ErrEventOverflow, without
// a path.
type OverflowError struct {
	Path string
}

func (e *OverflowError) Error() string {
	if e.Path == "" {
		return "notification overflow"
	}
	return "notification overflow: " + e.Path
}
