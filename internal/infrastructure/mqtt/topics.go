package mqtt

// Domophone bus topics.
//
// These are fixed logical channel names shared by every process on the bus;
// the exact strings are part of the protocol and must not change.
const (
	// TopicCommands carries inbound command messages to the emulated fleet.
	// Shape: {"identifier": "...", "command": "...", ...command fields}
	TopicCommands = "domophone/commands"

	// TopicStatus carries outbound device status messages.
	// Shape: {"mac": ..., "model": ..., "adress": ..., "status": "online"|"offline",
	//         "keys": {...}, "door_status": "open"|"closed", "timestamp": epoch-seconds}
	TopicStatus = "domophone/status"

	// TopicEvents carries outbound device events (calls, key usage, door
	// transitions, activation changes).
	// Shape: {"event": ..., "mac": ..., "timestamp": epoch-seconds, ...}
	TopicEvents = "domophone/events"
)
