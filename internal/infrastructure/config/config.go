package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure shared by the emulator and
// monitor processes. All configuration is loaded from YAML and can be
// overridden by environment variables.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Emulator EmulatorConfig `yaml:"emulator"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// EmulatorConfig contains settings for the domophone emulator process.
type EmulatorConfig struct {
	// Roster describes how the fleet list is fetched at startup.
	Roster RosterConfig `yaml:"roster"`

	// Apartments is the addressable apartment range [1, Apartments]
	// assigned to every emulated device.
	Apartments int `yaml:"apartments"`

	// StatusInterval is the fixed period of the status broadcast loop (seconds).
	StatusInterval int `yaml:"status_interval"`

	// EventIntervalMin/Max bound the randomised event loop sleep (seconds).
	EventIntervalMin int `yaml:"event_interval_min"`
	EventIntervalMax int `yaml:"event_interval_max"`
}

// RosterConfig contains fleet roster fetch settings.
// The emulator refuses to start without a roster: after Attempts failed
// fetches (RetryDelay seconds apart) startup is fatal.
type RosterConfig struct {
	URL        string `yaml:"url"`
	Attempts   int    `yaml:"attempts"`
	RetryDelay int    `yaml:"retry_delay"`
}

// MonitorConfig contains settings for the monitor process.
type MonitorConfig struct {
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// WatchdogConfig contains inactivity watchdog settings (seconds).
type WatchdogConfig struct {
	// OfflineThreshold is how long a device must be continuously offline
	// before it is marked inactive.
	OfflineThreshold int `yaml:"offline_threshold"`

	// SweepInterval is how often the watchdog checks for expired devices.
	SweepInterval int `yaml:"sweep_interval"`
}

// InfluxDBConfig contains InfluxDB telemetry sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DOMOPHONE_SECTION_KEY
// For example: DOMOPHONE_MQTT_HOST, DOMOPHONE_DATABASE_PATH
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
//
// The timing defaults match the behaviour of deployed devices: status every
// 30s, random events every 10-60s, 120s offline threshold with a 2s sweep,
// and a roster fetch of 10 attempts 3 seconds apart.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "domophone-emulator",
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Emulator: EmulatorConfig{
			Roster: RosterConfig{
				URL:        "http://localhost:8000/domophones",
				Attempts:   10,
				RetryDelay: 3,
			},
			Apartments:       50,
			StatusInterval:   30,
			EventIntervalMin: 10,
			EventIntervalMax: 60,
		},
		Monitor: MonitorConfig{
			API: APIConfig{
				Host: "0.0.0.0",
				Port: 8000,
				Timeouts: APITimeoutConfig{
					Read:  30,
					Write: 30,
					Idle:  60,
				},
			},
			Database: DatabaseConfig{
				Path:        "./data/domophone.db",
				WALMode:     true,
				BusyTimeout: 5,
			},
			Watchdog: WatchdogConfig{
				OfflineThreshold: 120,
				SweepInterval:    2,
			},
			InfluxDB: InfluxDBConfig{
				BatchSize:     100,
				FlushInterval: 10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DOMOPHONE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("DOMOPHONE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DOMOPHONE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("DOMOPHONE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DOMOPHONE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Emulator
	if v := os.Getenv("DOMOPHONE_ROSTER_URL"); v != "" {
		cfg.Emulator.Roster.URL = v
	}

	// Monitor
	if v := os.Getenv("DOMOPHONE_DATABASE_PATH"); v != "" {
		cfg.Monitor.Database.Path = v
	}
	if v := os.Getenv("DOMOPHONE_API_HOST"); v != "" {
		cfg.Monitor.API.Host = v
	}
	if v := os.Getenv("DOMOPHONE_INFLUXDB_TOKEN"); v != "" {
		cfg.Monitor.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}

	if c.Emulator.Apartments < 1 {
		errs = append(errs, "emulator.apartments must be at least 1")
	}
	if c.Emulator.StatusInterval < 1 {
		errs = append(errs, "emulator.status_interval must be at least 1 second")
	}
	if c.Emulator.EventIntervalMin < 1 || c.Emulator.EventIntervalMax < c.Emulator.EventIntervalMin {
		errs = append(errs, "emulator.event_interval_min/max must satisfy 1 <= min <= max")
	}
	if c.Emulator.Roster.Attempts < 1 {
		errs = append(errs, "emulator.roster.attempts must be at least 1")
	}

	if c.Monitor.API.Port < 1 || c.Monitor.API.Port > 65535 {
		errs = append(errs, "monitor.api.port must be between 1 and 65535")
	}
	if c.Monitor.Database.Path == "" {
		errs = append(errs, "monitor.database.path is required")
	}
	if c.Monitor.Watchdog.OfflineThreshold < 1 {
		errs = append(errs, "monitor.watchdog.offline_threshold must be at least 1 second")
	}
	if c.Monitor.Watchdog.SweepInterval < 1 {
		errs = append(errs, "monitor.watchdog.sweep_interval must be at least 1 second")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// StatusIntervalDuration returns the status broadcast period as a Duration.
func (c *EmulatorConfig) StatusIntervalDuration() time.Duration {
	return time.Duration(c.StatusInterval) * time.Second
}

// EventInterval returns the randomised event loop bounds as Durations.
func (c *EmulatorConfig) EventInterval() (min, max time.Duration) {
	return time.Duration(c.EventIntervalMin) * time.Second,
		time.Duration(c.EventIntervalMax) * time.Second
}

// RetryDelayDuration returns the roster retry delay as a Duration.
func (c *RosterConfig) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay) * time.Second
}

// OfflineThresholdDuration returns the watchdog offline threshold as a Duration.
func (c *WatchdogConfig) OfflineThresholdDuration() time.Duration {
	return time.Duration(c.OfflineThreshold) * time.Second
}

// SweepIntervalDuration returns the watchdog sweep period as a Duration.
func (c *WatchdogConfig) SweepIntervalDuration() time.Duration {
	return time.Duration(c.SweepInterval) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}
