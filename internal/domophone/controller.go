package domophone

import (
	"sort"
	"sync"
	"time"
)

// Publisher delivers status and event messages onto the bus. Publishing is
// fire-and-forget from the controller's viewpoint: errors are logged at the
// call site and never block or fail a state transition.
type Publisher interface {
	PublishStatus(msg StatusMessage) error
	PublishEvent(msg EventMessage) error
}

// Logger is the minimal logging interface the controller needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Controller is the single authority for one device's State. All state
// transitions happen under its lock, so commands and the simulation loops
// can hit the same device concurrently without losing updates.
type Controller struct {
	mu     sync.Mutex
	state  State
	pub    Publisher
	logger Logger
	now    func() time.Time
}

// NewController creates a controller owning the given state. The key
// registry is normalized on construction: sets sorted and deduplicated,
// empty apartment entries dropped.
func NewController(state State, pub Publisher, logger Logger) *Controller {
	if logger == nil {
		logger = noopLogger{}
	}
	if state.Apartments < 1 {
		state.Apartments = 1
	}

	normalized := make(map[int][]int, len(state.Keys))
	for apt, ids := range state.Keys {
		set := normalizeKeySet(ids)
		if len(set) > 0 {
			normalized[apt] = set
		}
	}
	state.Keys = normalized

	return &Controller{
		state:  state,
		pub:    pub,
		logger: logger,
		now:    time.Now,
	}
}

// MAC returns the device's immutable identifier.
func (c *Controller) MAC() string {
	return c.state.MAC
}

// Snapshot returns a read-only copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		MAC:        c.state.MAC,
		Model:      c.state.Model,
		Address:    c.state.Address,
		Apartments: c.state.Apartments,
		Online:     c.state.Online,
		DoorOpen:   !c.state.LockEngaged,
		Keys:       cloneKeys(c.state.Keys),
	}
}

// OpenDoor disengages the lock. Idempotent.
func (c *Controller) OpenDoor() {
	c.mu.Lock()
	c.state.LockEngaged = false
	c.mu.Unlock()
}

// CloseDoor engages the lock. Idempotent.
func (c *Controller) CloseDoor() {
	c.mu.Lock()
	c.state.LockEngaged = true
	c.mu.Unlock()
}

// AddKeys unions the given key IDs into the apartment's set and publishes a
// status update. Out-of-range apartments are rejected as a no-op. Returns
// whether the command was applied.
func (c *Controller) AddKeys(apartment int, keys []int) bool {
	c.mu.Lock()
	if !c.apartmentInRange(apartment) {
		c.mu.Unlock()
		c.logger.Warn("add_keys for out-of-range apartment",
			"mac", c.state.MAC, "apartment", apartment)
		return false
	}
	merged := normalizeKeySet(append(append([]int{}, c.state.Keys[apartment]...), keys...))
	if len(merged) > 0 {
		c.state.Keys[apartment] = merged
	}
	status := c.statusLocked()
	c.mu.Unlock()

	c.publishStatus(status)
	return true
}

// RemoveKeys removes matching key IDs from the apartment's set, deleting
// the entry when it empties. Publishes a status update only when the
// registry actually changed. Returns whether it changed.
func (c *Controller) RemoveKeys(apartment int, keys []int) bool {
	c.mu.Lock()
	existing, ok := c.state.Keys[apartment]
	if !ok {
		c.mu.Unlock()
		return false
	}

	drop := make(map[int]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}

	remaining := existing[:0:0]
	for _, k := range existing {
		if !drop[k] {
			remaining = append(remaining, k)
		}
	}

	if len(remaining) == len(existing) {
		c.mu.Unlock()
		return false
	}

	if len(remaining) == 0 {
		delete(c.state.Keys, apartment)
	} else {
		c.state.Keys[apartment] = remaining
	}
	status := c.statusLocked()
	c.mu.Unlock()

	c.publishStatus(status)
	return true
}

// CallToFlat publishes a call event for the given flat. Flats outside
// [1, Apartments] are a no-op with a warning.
func (c *Controller) CallToFlat(flat int) {
	c.mu.Lock()
	inRange := c.apartmentInRange(flat)
	c.mu.Unlock()

	if !inRange {
		c.logger.Warn("call to out-of-range flat",
			"mac", c.state.MAC, "flat", flat)
		return
	}

	c.publishEvent(EventMessage{
		Event:     EventCall,
		MAC:       c.state.MAC,
		Timestamp: c.now().Unix(),
		Apartment: flat,
	})
}

// Activate marks the device online and publishes an online status.
func (c *Controller) Activate() {
	c.mu.Lock()
	c.state.Online = true
	status := c.statusLocked()
	c.mu.Unlock()

	c.publishStatus(status)
}

// Deactivate marks the device offline and publishes an offline status.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	c.state.Online = false
	status := c.statusLocked()
	c.mu.Unlock()

	c.publishStatus(status)
}

// PublishStatus publishes the device's current status unconditionally.
// Used by the periodic status broadcast loop.
func (c *Controller) PublishStatus() {
	c.mu.Lock()
	status := c.statusLocked()
	c.mu.Unlock()

	c.publishStatus(status)
}

// HandleCommand applies a parsed command to this device.
//
// A command whose identifier does not match is a complete no-op: the
// dispatcher routes by identifier already, so this is a second gate.
// Each applied command publishes a descriptive event alongside whatever
// status update the operation itself produces. Door transitions are
// idempotent state-wise but still emit.
func (c *Controller) HandleCommand(cmd Command) error {
	if cmd.Identifier != c.state.MAC {
		return ErrIdentifierMismatch
	}

	switch cmd.Name {
	case CmdOpenDoor:
		c.OpenDoor()
		c.PublishStatus()
		c.emitEvent(EventDoorOpened)

	case CmdCloseDoor:
		c.CloseDoor()
		c.PublishStatus()
		c.emitEvent(EventDoorClosed)

	case CmdCallToFlat:
		c.CallToFlat(cmd.FlatNumber)

	case CmdAddKeys:
		if c.AddKeys(cmd.Apartment, cmd.Keys) {
			c.publishEvent(EventMessage{
				Event:     EventKeysAdded,
				MAC:       c.state.MAC,
				Timestamp: c.now().Unix(),
				Apartment: cmd.Apartment,
				Keys:      normalizeKeySet(cmd.Keys),
			})
		}

	case CmdRemoveKeys:
		if c.RemoveKeys(cmd.Apartment, cmd.Keys) {
			c.publishEvent(EventMessage{
				Event:     EventKeysRemoved,
				MAC:       c.state.MAC,
				Timestamp: c.now().Unix(),
				Apartment: cmd.Apartment,
				Keys:      normalizeKeySet(cmd.Keys),
			})
		}

	case CmdMakeActive:
		c.Activate()
		c.emitEvent(EventActivated)

	case CmdUnactive:
		c.Deactivate()
		c.emitEvent(EventDeactivated)

	default:
		return ErrUnknownCommand
	}

	return nil
}

// statusLocked builds a status message from current state. Caller holds mu.
func (c *Controller) statusLocked() StatusMessage {
	status := StatusOffline
	if c.state.Online {
		status = StatusOnline
	}
	doorStatus := DoorStatusOpen
	if c.state.LockEngaged {
		doorStatus = DoorStatusClosed
	}
	return StatusMessage{
		MAC:        c.state.MAC,
		Model:      c.state.Model,
		Address:    c.state.Address,
		Status:     status,
		Keys:       cloneKeys(c.state.Keys),
		DoorStatus: doorStatus,
		Timestamp:  c.now().Unix(),
	}
}

func (c *Controller) emitEvent(kind string) {
	c.publishEvent(EventMessage{
		Event:     kind,
		MAC:       c.state.MAC,
		Timestamp: c.now().Unix(),
	})
}

func (c *Controller) publishStatus(msg StatusMessage) {
	if c.pub == nil {
		return
	}
	if err := c.pub.PublishStatus(msg); err != nil {
		c.logger.Error("status publish failed", "mac", c.state.MAC, "error", err)
	}
}

func (c *Controller) publishEvent(msg EventMessage) {
	if c.pub == nil {
		return
	}
	if err := c.pub.PublishEvent(msg); err != nil {
		c.logger.Error("event publish failed",
			"mac", c.state.MAC, "event", msg.Event, "error", err)
	}
}

// apartmentInRange reports whether apt is a valid flat number. Caller holds mu.
func (c *Controller) apartmentInRange(apt int) bool {
	return apt >= 1 && apt <= c.state.Apartments
}

// normalizeKeySet returns ids sorted and deduplicated.
func normalizeKeySet(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)

	out := sorted[:1]
	for _, id := range sorted[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
