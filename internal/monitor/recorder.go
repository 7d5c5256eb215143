package monitor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bogdnnx/smart-domophone/internal/domophone"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/logging"
)

// recorderStoreTimeout bounds each database write from the bus handlers.
const recorderStoreTimeout = 5 * time.Second

// WebSocket broadcast channels.
const (
	ChannelStatus = "domophone.status"
	ChannelEvents = "domophone.events"
)

// Broadcaster pushes live updates to connected dashboard clients.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Telemetry records time-series samples. Implemented by the InfluxDB
// client; nil when the sink is disabled.
type Telemetry interface {
	WriteStatusSample(mac, model string, online, doorOpen bool, keyCount int)
	WriteEventSample(mac, eventKind string, apartment int, at time.Time)
}

// Recorder consumes status and event messages off the bus and fans them out
// to the store, the watchdog, the WebSocket hub, and the telemetry sink.
// Malformed messages are logged and dropped; handler errors never propagate
// back to the bus transport.
type Recorder struct {
	store     *Store
	watchdog  *Watchdog
	hub       Broadcaster
	telemetry Telemetry
	logger    *logging.Logger
}

// NewRecorder creates a recorder. hub and telemetry may be nil.
func NewRecorder(store *Store, watchdog *Watchdog, hub Broadcaster, telemetry Telemetry, logger *logging.Logger) *Recorder {
	return &Recorder{
		store:     store,
		watchdog:  watchdog,
		hub:       hub,
		telemetry: telemetry,
		logger:    logger,
	}
}

// HandleStatus processes one message from the status topic.
// The signature matches the bus client's subscription handler.
func (r *Recorder) HandleStatus(topic string, payload []byte) error {
	var msg domophone.StatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.logger.Error("dropping malformed status message", "error", err)
		return nil
	}
	if msg.MAC == "" {
		r.logger.Warn("dropping status message without mac")
		return nil
	}

	lastSeen := time.Unix(msg.Timestamp, 0)
	if msg.Timestamp == 0 {
		lastSeen = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), recorderStoreTimeout)
	defer cancel()

	if err := r.store.UpsertStatus(ctx, Domophone{
		MAC:        msg.MAC,
		Model:      orDefaultStr(msg.Model, "Unknown"),
		Address:    orDefaultStr(msg.Address, "Unknown"),
		Status:     orDefaultStr(msg.Status, domophone.StatusOffline),
		DoorStatus: orDefaultStr(msg.DoorStatus, domophone.DoorStatusClosed),
		Keys:       msg.Keys,
		LastSeen:   &lastSeen,
	}); err != nil {
		r.logger.Error("persisting status failed", "mac", msg.MAC, "error", err)
	}

	keysJSON, err := encodeKeys(msg.Keys)
	if err != nil {
		keysJSON = "{}"
	}
	if err := r.store.InsertStatusLog(ctx, StatusLog{
		MAC:        msg.MAC,
		Status:     msg.Status,
		DoorStatus: msg.DoorStatus,
		Keys:       keysJSON,
		Message:    string(payload),
	}); err != nil {
		r.logger.Error("persisting status log failed", "mac", msg.MAC, "error", err)
	}

	r.watchdog.Observe(ctx, msg.MAC, msg.Status)

	if r.hub != nil {
		r.hub.Broadcast(ChannelStatus, msg)
	}
	if r.telemetry != nil {
		keyCount := 0
		for _, ids := range msg.Keys {
			keyCount += len(ids)
		}
		r.telemetry.WriteStatusSample(msg.MAC, msg.Model,
			msg.Status == domophone.StatusOnline,
			msg.DoorStatus == domophone.DoorStatusOpen,
			keyCount)
	}
	return nil
}

// HandleEvent processes one message from the event topic.
func (r *Recorder) HandleEvent(topic string, payload []byte) error {
	var msg domophone.EventMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.logger.Error("dropping malformed event message", "error", err)
		return nil
	}
	if msg.MAC == "" || msg.Event == "" {
		r.logger.Warn("dropping event message without mac or event kind")
		return nil
	}

	eventTime := time.Unix(msg.Timestamp, 0)
	if msg.Timestamp == 0 {
		eventTime = time.Now()
	}

	ev := Event{
		MAC:       msg.MAC,
		EventType: msg.Event,
		EventTime: eventTime,
	}
	if msg.Apartment > 0 {
		apt := msg.Apartment
		ev.Apartment = &apt
	}
	if msg.KeyID > 0 {
		keyID := msg.KeyID
		ev.KeyID = &keyID
	}

	ctx, cancel := context.WithTimeout(context.Background(), recorderStoreTimeout)
	defer cancel()

	if err := r.store.InsertEvent(ctx, ev); err != nil {
		r.logger.Error("persisting event failed",
			"mac", msg.MAC, "event", msg.Event, "error", err)
	}

	if r.hub != nil {
		r.hub.Broadcast(ChannelEvents, msg)
	}
	if r.telemetry != nil {
		r.telemetry.WriteEventSample(msg.MAC, msg.Event, msg.Apartment, eventTime)
	}
	return nil
}
