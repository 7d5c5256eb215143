package domophone

// State is the mutable state of one emulated device. It is owned exclusively
// by the device's Controller and must only be touched under its lock.
type State struct {
	// MAC is the device's stable unique address. Immutable after creation.
	MAC string

	// Model and Address are descriptive metadata.
	Model   string
	Address string

	// Apartments is the number of addressable flats. Valid flat numbers
	// are [1, Apartments].
	Apartments int

	// Online is the emulator's own view of connectivity. The monitor's
	// derived "active" flag lives in its database, not here.
	Online bool

	// LockEngaged is true when the door is closed and locked.
	LockEngaged bool

	// Keys maps apartment number to the set of authorized key IDs for
	// that apartment. An apartment never maps to an empty set: removing
	// the last key deletes the entry.
	Keys map[int][]int
}

// Snapshot is a read-only copy of device state handed to event strategies
// and schedulers. The Keys map is cloned so holders can't race the owner.
type Snapshot struct {
	MAC        string
	Model      string
	Address    string
	Apartments int
	Online     bool
	DoorOpen   bool
	Keys       map[int][]int
}

// Wire values for the status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"

	DoorStatusOpen   = "open"
	DoorStatusClosed = "closed"
)

// Event kinds published on the event topic.
const (
	EventCall        = "call"
	EventKeyUsed     = "key_used"
	EventDoorOpened  = "door_opened"
	EventDoorClosed  = "door_closed"
	EventKeysAdded   = "keys_added"
	EventKeysRemoved = "keys_removed"
	EventActivated   = "domophone_activated"
	EventDeactivated = "domophone_deactivated"

	// EventInactive is published by the monitor's watchdog, not by
	// devices, when a device has been offline past the threshold.
	EventInactive = "domophone_unactive"
)

// StatusMessage is the wire shape published on the status topic.
// Field names (including the "adress" spelling) are fixed by the protocol.
type StatusMessage struct {
	MAC        string        `json:"mac"`
	Model      string        `json:"model"`
	Address    string        `json:"adress"`
	Status     string        `json:"status"`
	Keys       map[int][]int `json:"keys"`
	DoorStatus string        `json:"door_status"`
	Timestamp  int64         `json:"timestamp"`
}

// EventMessage is the wire shape published on the event topic.
// Apartment and KeyID are present only for kinds that carry them.
type EventMessage struct {
	Event     string `json:"event"`
	MAC       string `json:"mac"`
	Timestamp int64  `json:"timestamp"`
	Apartment int    `json:"apartment,omitempty"`
	KeyID     int    `json:"key_id,omitempty"`
	Keys      []int  `json:"keys,omitempty"`
}

// cloneKeys deep-copies an apartment key registry.
func cloneKeys(keys map[int][]int) map[int][]int {
	if keys == nil {
		return map[int][]int{}
	}
	cpy := make(map[int][]int, len(keys))
	for apt, ids := range keys {
		set := make([]int, len(ids))
		copy(set, ids)
		cpy[apt] = set
	}
	return cpy
}
