// Package influxdb provides optional time-series telemetry for the monitor.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes, and health monitoring. The
// monitor records per-device status samples (online, door, programmed key
// count) and event occurrences, which makes fleet activity graphable in
// Grafana without touching the SQLite store.
//
// The sink is disabled by default; Connect returns ErrDisabled when the
// config leaves it off and the monitor runs without it.
//
// All methods are safe for concurrent use. Writes are batched according to
// the configured batch_size and flush_interval.
package influxdb
