package fleet

import (
	"errors"

	"github.com/bogdnnx/smart-domophone/internal/domophone"
)

// Logger is the minimal logging interface fleet components need.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Dispatcher routes inbound command messages to the right controller.
// Malformed or unroutable messages are logged and dropped; nothing ever
// propagates back to the bus transport.
type Dispatcher struct {
	registry *Registry
	logger   Logger
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry, logger Logger) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		registry: registry,
		logger:   logger,
	}
}

// HandleMessage processes one raw message from the command topic.
// The signature matches the bus client's subscription handler.
func (d *Dispatcher) HandleMessage(topic string, payload []byte) error {
	cmd, err := domophone.ParseCommand(payload)
	if err != nil {
		d.logger.Error("dropping malformed command",
			"topic", topic, "error", err)
		return nil
	}

	ctrl, ok := d.registry.Get(cmd.Identifier)
	if !ok {
		d.logger.Warn("command for unknown device",
			"identifier", cmd.Identifier, "command", cmd.Name)
		return nil
	}

	if err := ctrl.HandleCommand(cmd); err != nil {
		// Mismatch can't happen after a registry hit; unknown names are
		// caught by ParseCommand. Log anyway in case the sets drift.
		if !errors.Is(err, domophone.ErrIdentifierMismatch) {
			d.logger.Warn("command rejected",
				"identifier", cmd.Identifier, "command", cmd.Name, "error", err)
		}
	}
	return nil
}
