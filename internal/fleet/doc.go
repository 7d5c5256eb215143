// Package fleet wires the emulated device fleet together: the registry
// mapping device MACs to controllers, the dispatcher that routes inbound
// command messages, the roster loader that fetches the fleet from the
// monitor at startup, and the scheduler driving periodic status broadcasts
// and randomized simulated events.
package fleet
