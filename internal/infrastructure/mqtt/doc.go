// Package mqtt provides MQTT client connectivity for the domophone services.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions restored across reconnects
//   - Connection health monitoring
//
// # Architecture
//
// The message bus decouples the emulated fleet from its consumers:
//
//	Monitor UI/API → domophone/commands → Emulator
//	Emulator → domophone/status, domophone/events → Monitor
//
// Publishing is fire-and-forget from the emulator's point of view: a failed
// publish is logged at the call site and the next scheduled iteration
// proceeds normally. Delivery guarantees beyond the broker's QoS are out of
// scope.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.TopicCommands, 0,
//	    func(topic string, payload []byte) error {
//	        // parse and route
//	        return nil
//	    })
package mqtt
