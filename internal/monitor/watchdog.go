package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/bogdnnx/smart-domophone/internal/domophone"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/logging"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/mqtt"
)

// Watchdog defaults.
const (
	defaultOfflineThreshold = 120 * time.Second
	defaultSweepInterval    = 2 * time.Second

	watchdogStoreTimeout = 5 * time.Second
)

// ActiveSetter is the slice of the store the watchdog writes through.
type ActiveSetter interface {
	SetActive(ctx context.Context, mac string, active bool) error
}

// EventPublisher is the slice of the bus client the watchdog publishes
// through.
type EventPublisher interface {
	PublishJSON(topic string, payload any) error
}

// offlineEntry tracks one device's continuous-offline window.
type offlineEntry struct {
	since   time.Time
	expired bool
}

// Watchdog derives per-device liveness from the status stream. A device
// reporting offline gets an offline-since mark (and a one-shot
// domophone_unactive event); once continuously offline past the threshold
// the sweep marks it inactive in the store. Any online status clears the
// mark and re-activates the device.
//
// The watchdog is driven purely by message arrival plus its own sweep
// ticker. It never polls the devices.
type Watchdog struct {
	store  ActiveSetter
	bus    EventPublisher
	logger *logging.Logger

	threshold     time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	mu      sync.Mutex
	offline map[string]*offlineEntry

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// WatchdogConfig holds watchdog timing configuration.
type WatchdogConfig struct {
	// OfflineThreshold is how long a device must stay offline before it
	// is marked inactive. Default: 120 seconds.
	OfflineThreshold time.Duration

	// SweepInterval is how often expiry is checked. Default: 2 seconds.
	SweepInterval time.Duration
}

// NewWatchdog creates a watchdog writing through the given store and bus.
func NewWatchdog(cfg WatchdogConfig, store ActiveSetter, bus EventPublisher, logger *logging.Logger) *Watchdog {
	if cfg.OfflineThreshold <= 0 {
		cfg.OfflineThreshold = defaultOfflineThreshold
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	return &Watchdog{
		store:         store,
		bus:           bus,
		logger:        logger,
		threshold:     cfg.OfflineThreshold,
		sweepInterval: cfg.SweepInterval,
		now:           time.Now,
		offline:       make(map[string]*offlineEntry),
		done:          make(chan struct{}),
	}
}

// Start launches the sweep loop. Call Stop to shut down.
func (w *Watchdog) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.sweepLoop(ctx)
}

// Stop halts the sweep loop and waits for it to finish.
// Safe to call multiple times.
func (w *Watchdog) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
	})
}

// Observe feeds one status observation into the watchdog.
//
// The first offline observation records the offline start and publishes a
// domophone_unactive event. Any online observation clears the record and
// marks the device active in the store unconditionally, so a stale
// is_active flag is repaired even when the offline tracking state was lost,
// such as after a restart.
func (w *Watchdog) Observe(ctx context.Context, mac, status string) {
	if mac == "" {
		return
	}

	if status == domophone.StatusOffline {
		w.mu.Lock()
		_, tracked := w.offline[mac]
		if !tracked {
			w.offline[mac] = &offlineEntry{since: w.now()}
		}
		w.mu.Unlock()

		if !tracked {
			w.logger.Info("device went offline", "mac", mac)
			w.publishInactive(mac)
		}
		return
	}

	w.mu.Lock()
	entry, tracked := w.offline[mac]
	delete(w.offline, mac)
	w.mu.Unlock()

	if tracked && entry.expired {
		w.logger.Info("device back online, re-activating", "mac", mac)
	}
	if err := w.store.SetActive(ctx, mac, true); err != nil {
		w.logger.Error("marking device active failed", "mac", mac, "error", err)
	}
}

// OfflineCount returns the number of devices currently tracked as offline.
func (w *Watchdog) OfflineCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.offline)
}

// sweepLoop checks threshold expiry on a fixed cadence.
func (w *Watchdog) sweepLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep marks devices inactive once their offline window passes the
// threshold. Each device is flagged once per offline stretch.
func (w *Watchdog) sweep(ctx context.Context) {
	now := w.now()

	w.mu.Lock()
	var expired []string
	for mac, entry := range w.offline {
		if !entry.expired && now.Sub(entry.since) >= w.threshold {
			entry.expired = true
			expired = append(expired, mac)
		}
	}
	w.mu.Unlock()

	for _, mac := range expired {
		w.logger.Warn("device offline past threshold, marking inactive",
			"mac", mac, "threshold", w.threshold)

		storeCtx, cancel := context.WithTimeout(ctx, watchdogStoreTimeout)
		if err := w.store.SetActive(storeCtx, mac, false); err != nil {
			w.logger.Error("marking device inactive failed", "mac", mac, "error", err)
		}
		cancel()
	}
}

// publishInactive emits the watchdog's own event onto the event topic.
func (w *Watchdog) publishInactive(mac string) {
	if w.bus == nil {
		return
	}
	msg := domophone.EventMessage{
		Event:     domophone.EventInactive,
		MAC:       mac,
		Timestamp: w.now().Unix(),
	}
	if err := w.bus.PublishJSON(mqtt.TopicEvents, msg); err != nil {
		w.logger.Error("publishing inactive event failed", "mac", mac, "error", err)
	}
}
