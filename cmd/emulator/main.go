// Domophone emulator.
//
// Emulates a fleet of MQTT-connected intercom panels: each device answers
// commands on the command topic, broadcasts its state on a fixed interval,
// and generates random resident activity. The fleet roster is fetched from
// the monitor service at startup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bogdnnx/smart-domophone/internal/domophone"
	"github.com/bogdnnx/smart-domophone/internal/fleet"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/config"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/logging"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/mqtt"
)

// Version information, set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logging.Default("domophone-emulator")
	log.Info("starting domophone emulator", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, "domophone-emulator", version)

	// Fetch the fleet roster from the monitor. Startup is fatal if the
	// roster stays unreachable past the retry budget.
	loader := fleet.NewRosterLoader(fleet.RosterConfig{
		URL:        cfg.Emulator.Roster.URL,
		Attempts:   cfg.Emulator.Roster.Attempts,
		RetryDelay: cfg.Emulator.Roster.RetryDelayDuration(),
		Apartments: cfg.Emulator.Apartments,
	}, log)

	states, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading fleet roster: %w", err)
	}
	log.Info("fleet roster loaded", "devices", len(states))

	// Connect to the MQTT broker.
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Build one controller per roster device.
	publisher := fleet.NewBusPublisher(mqttClient)
	registry := fleet.NewRegistry()
	for _, state := range states {
		ctrl := domophone.NewController(state, publisher, log.With("mac", state.MAC))
		if addErr := registry.Add(ctrl); addErr != nil {
			log.Warn("skipping duplicate roster entry", "mac", state.MAC, "error", addErr)
		}
	}
	log.Info("fleet initialised", "devices", registry.Count())

	// Route inbound commands to their devices.
	dispatcher := fleet.NewDispatcher(registry, log)
	if err := mqttClient.Subscribe(mqtt.TopicCommands, byte(cfg.MQTT.QoS), dispatcher.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to command topic: %w", err)
	}
	log.Info("subscribed to command topic", "topic", mqtt.TopicCommands)

	// Start the status and event loops.
	minInterval, maxInterval := cfg.Emulator.EventInterval()
	scheduler := fleet.NewScheduler(fleet.SchedulerConfig{
		StatusInterval:   cfg.Emulator.StatusIntervalDuration(),
		EventIntervalMin: minInterval,
		EventIntervalMax: maxInterval,
	}, registry, publisher, log)
	scheduler.Start(ctx)
	defer func() {
		log.Info("stopping scheduler")
		scheduler.Stop()
	}()

	log.Info("emulator running, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DOMOPHONE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DOMOPHONE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
