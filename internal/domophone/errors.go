package domophone

import "errors"

// Command parsing and validation errors. Callers drop the offending message
// and log; none of these propagate back onto the bus.
var (
	// ErrMalformedPayload indicates the raw message was not a JSON object.
	ErrMalformedPayload = errors.New("malformed command payload")

	// ErrMissingIdentifier indicates the command had no target device.
	ErrMissingIdentifier = errors.New("command missing identifier")

	// ErrMissingCommand indicates the command name field was absent.
	ErrMissingCommand = errors.New("command missing command name")

	// ErrUnknownCommand indicates a command name outside the recognized set.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidFields indicates a recognized command with missing or
	// mistyped command-specific fields.
	ErrInvalidFields = errors.New("invalid command fields")

	// ErrIdentifierMismatch indicates a command routed to a controller
	// whose device it does not address.
	ErrIdentifierMismatch = errors.New("command identifier does not match device")
)
