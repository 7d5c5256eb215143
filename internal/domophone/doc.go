// Package domophone implements the per-device intercom state machine.
//
// Each emulated device is owned by a Controller: the single authority for
// that device's door, key registry, and online state. Commands arrive as
// parsed Command values, mutate state under the controller's lock, and emit
// status and event messages through a Publisher.
//
// Event strategies (call, key_used) generate randomized simulated traffic
// from a read-only snapshot of device state. They never mutate anything.
package domophone
