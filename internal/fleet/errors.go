package fleet

import "errors"

var (
	// ErrDuplicateDevice indicates an attempt to register a MAC twice.
	ErrDuplicateDevice = errors.New("device already registered")

	// ErrRosterUnavailable indicates the roster service could not be
	// reached within the configured retry budget. Fatal at startup.
	ErrRosterUnavailable = errors.New("roster service unavailable")

	// ErrEmptyRoster indicates the roster service returned no devices.
	ErrEmptyRoster = errors.New("roster is empty")
)
