package domophone

import (
	"encoding/json"
	"fmt"
)

// Recognized command names on the command topic.
const (
	CmdOpenDoor   = "open_door"
	CmdCloseDoor  = "close_door"
	CmdCallToFlat = "call_to_flat"
	CmdAddKeys    = "add_keys"
	CmdRemoveKeys = "remove_keys"
	CmdMakeActive = "make_active"
	CmdUnactive   = "make_unactive"
)

// Command is a parsed, validated inbound command message.
// Only the fields relevant to Name are populated.
type Command struct {
	// Identifier is the MAC of the device the command addresses.
	Identifier string

	// Name is the command verb, one of the Cmd* constants.
	Name string

	// FlatNumber is set for call_to_flat.
	FlatNumber int

	// Apartment and Keys are set for add_keys and remove_keys.
	Apartment int
	Keys      []int
}

// rawCommand is the wire envelope. Pointer fields distinguish absent from
// zero so validation can reject missing required fields.
type rawCommand struct {
	Identifier string `json:"identifier"`
	Command    string `json:"command"`
	FlatNumber *int   `json:"flat_number"`
	Apartment  *int   `json:"apartment"`
	Keys       *[]int `json:"keys"`
}

// ParseCommand decodes and validates a raw command payload.
//
// Validation is strict: a recognized command with a missing or mistyped
// field is rejected whole. A non-integer anywhere in the keys list fails
// JSON decoding and surfaces as ErrMalformedPayload.
func ParseCommand(payload []byte) (Command, error) {
	var raw rawCommand
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if raw.Identifier == "" {
		return Command{}, ErrMissingIdentifier
	}
	if raw.Command == "" {
		return Command{}, ErrMissingCommand
	}

	cmd := Command{
		Identifier: raw.Identifier,
		Name:       raw.Command,
	}

	switch raw.Command {
	case CmdOpenDoor, CmdCloseDoor, CmdMakeActive, CmdUnactive:
		// No extra fields.

	case CmdCallToFlat:
		if raw.FlatNumber == nil {
			return Command{}, fmt.Errorf("%w: %s requires flat_number", ErrInvalidFields, raw.Command)
		}
		cmd.FlatNumber = *raw.FlatNumber

	case CmdAddKeys, CmdRemoveKeys:
		if raw.Apartment == nil {
			return Command{}, fmt.Errorf("%w: %s requires apartment", ErrInvalidFields, raw.Command)
		}
		if raw.Keys == nil {
			return Command{}, fmt.Errorf("%w: %s requires keys", ErrInvalidFields, raw.Command)
		}
		// Key IDs are positive on the wire; 0 would be dropped from event
		// payloads by omitempty.
		for _, key := range *raw.Keys {
			if key < 1 {
				return Command{}, fmt.Errorf("%w: key ids must be positive, got %d", ErrInvalidFields, key)
			}
		}
		cmd.Apartment = *raw.Apartment
		cmd.Keys = *raw.Keys

	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, raw.Command)
	}

	return cmd, nil
}
