package monitor

import "errors"

var (
	// ErrDomophoneNotFound indicates a lookup for a MAC with no roster row.
	ErrDomophoneNotFound = errors.New("domophone not found")

	// ErrDomophoneExists indicates a create for a MAC already in the roster.
	ErrDomophoneExists = errors.New("domophone already exists")

	// ErrInvalidCommand indicates a command submission that failed
	// validation before reaching the bus.
	ErrInvalidCommand = errors.New("invalid command")
)
