package fleet

import (
	"sync"

	"github.com/bogdnnx/smart-domophone/internal/domophone"
)

// Registry maps device MACs to their controllers. Read-mostly: the fleet is
// loaded once at startup, then the dispatcher and scheduler only look up and
// iterate. A hash lookup replaces the naive linear scan with identical
// observable behavior.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*domophone.Controller
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]*domophone.Controller),
	}
}

// Add registers a controller under its MAC.
func (r *Registry) Add(ctrl *domophone.Controller) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mac := ctrl.MAC()
	if _, exists := r.devices[mac]; exists {
		return ErrDuplicateDevice
	}
	r.devices[mac] = ctrl
	return nil
}

// Get returns the controller for a MAC, if registered.
func (r *Registry) Get(mac string) (*domophone.Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctrl, ok := r.devices[mac]
	return ctrl, ok
}

// All returns a snapshot slice of every registered controller.
// Iteration order is unspecified.
func (r *Registry) All() []*domophone.Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domophone.Controller, 0, len(r.devices))
	for _, ctrl := range r.devices {
		out = append(out, ctrl)
	}
	return out
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
