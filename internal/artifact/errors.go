package artifact

import "errors"

// Registry errors.
var (
	// ErrNotFound is returned for unknown, expired, or invalid artifact
	// names. It deliberately does not distinguish the three cases, so a
	// crafted name reveals nothing about filesystem state.
	ErrNotFound = errors.New("artifact not found")
)
