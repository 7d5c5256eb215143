// Package config provides YAML-based configuration for the domophone
// emulator and monitor processes.
//
// Configuration is loaded in three layers: hardcoded defaults, a YAML file,
// and DOMOPHONE_* environment variable overrides. Both binaries share one
// Config struct; the emulator reads the mqtt/emulator/logging sections and
// the monitor reads mqtt/monitor/logging.
//
// Timing values are plain integers in seconds in the file, with helper
// methods converting to time.Duration at the call sites that need them.
package config
