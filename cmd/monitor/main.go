// Domophone monitor.
//
// Consumes the emulated fleet's status and event topics, persists them to
// SQLite, derives per-device liveness with an inactivity watchdog, and
// serves a dashboard API with live WebSocket updates. The monitor is also
// the roster source the emulator fetches at startup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/bogdnnx/smart-domophone/migrations"

	"github.com/bogdnnx/smart-domophone/internal/infrastructure/config"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/database"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/influxdb"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/logging"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/mqtt"
	"github.com/bogdnnx/smart-domophone/internal/monitor"
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
	log := logging.Default("domophone-monitor")
	log.Info("starting domophone monitor", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, "domophone-monitor", version)

	// Open the database and run migrations.
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Monitor.Database.Path,
		WALMode:     cfg.Monitor.Database.WALMode,
		BusyTimeout: cfg.Monitor.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Monitor.Database.Path)

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

	// Connect to InfluxDB (optional telemetry sink).
	var influxClient *influxdb.Client
	var telemetry monitor.Telemetry
	if cfg.Monitor.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.Monitor.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		telemetry = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.Monitor.InfluxDB.URL,
			"bucket", cfg.Monitor.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	store := monitor.NewStore(db)

	// Start the inactivity watchdog.
	watchdog := monitor.NewWatchdog(monitor.WatchdogConfig{
		OfflineThreshold: cfg.Monitor.Watchdog.OfflineThresholdDuration(),
		SweepInterval:    cfg.Monitor.Watchdog.SweepIntervalDuration(),
	}, store, mqttClient, log)
	watchdog.Start(ctx)
	defer func() {
		log.Info("stopping watchdog")
		watchdog.Stop()
	}()
	log.Info("watchdog started",
		"offline_threshold", cfg.Monitor.Watchdog.OfflineThresholdDuration(),
		"sweep_interval", cfg.Monitor.Watchdog.SweepIntervalDuration(),
	)

	// Start the API server.
	server, err := monitor.New(monitor.Deps{
		Config: cfg.Monitor.API,
		Logger: log,
		Store:  store,
		Bus:    mqttClient,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Wire the bus topics into the recorder.
	recorder := monitor.NewRecorder(store, watchdog, server.Hub(), telemetry, log)
	qos := byte(cfg.MQTT.QoS)
	if err := mqttClient.Subscribe(mqtt.TopicStatus, qos, recorder.HandleStatus); err != nil {
		return fmt.Errorf("subscribing to status topic: %w", err)
	}
	if err := mqttClient.Subscribe(mqtt.TopicEvents, qos, recorder.HandleEvent); err != nil {
		return fmt.Errorf("subscribing to event topic: %w", err)
	}
	log.Info("subscribed to fleet topics",
		"topics", []string{mqtt.TopicStatus, mqtt.TopicEvents})

	// Verify all connections are healthy.
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("monitor running, waiting for shutdown signal")
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

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
