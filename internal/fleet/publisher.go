package fleet

import (
	"github.com/bogdnnx/smart-domophone/internal/domophone"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/mqtt"
)

// JSONPublisher is the slice of the bus client the fleet needs.
type JSONPublisher interface {
	PublishJSON(topic string, payload any) error
}

// BusPublisher pins controller status and event messages to their fixed
// bus topics. It implements domophone.Publisher.
type BusPublisher struct {
	bus JSONPublisher
}

// NewBusPublisher creates a publisher over the given bus client.
func NewBusPublisher(bus JSONPublisher) *BusPublisher {
	return &BusPublisher{bus: bus}
}

// PublishStatus publishes onto the status topic.
func (p *BusPublisher) PublishStatus(msg domophone.StatusMessage) error {
	return p.bus.PublishJSON(mqtt.TopicStatus, msg)
}

// PublishEvent publishes onto the event topic.
func (p *BusPublisher) PublishEvent(msg domophone.EventMessage) error {
	return p.bus.PublishJSON(mqtt.TopicEvents, msg)
}
