// Package monitor implements the companion service that watches the device
// fleet from the outside: it consumes status and event messages off the bus,
// persists them to SQLite, derives per-device liveness through an inactivity
// watchdog, and serves an HTTP API (roster, recent traffic, command
// submission, WebSocket stream) for dashboards.
//
// The monitor has no handle into the emulator process. Everything it knows
// arrives as messages; everything it wants changed goes back out as a
// command on the bus.
package monitor
