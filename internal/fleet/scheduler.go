package fleet

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/bogdnnx/smart-domophone/internal/domophone"
)

// Scheduler drives the two simulation loops: a fixed-interval status
// broadcast covering every device, and a randomized event loop generating
// simulated traffic for online devices. The loops run concurrently with
// command handling and share nothing but the registry; all device state
// access goes through each controller's own lock.
type Scheduler struct {
	registry  *Registry
	publisher domophone.Publisher
	logger    Logger

	statusInterval time.Duration
	eventMin       time.Duration
	eventMax       time.Duration

	call    domophone.EventStrategy
	keyUsed domophone.EventStrategy
	rng     *rand.Rand

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// SchedulerConfig holds scheduler timing configuration.
type SchedulerConfig struct {
	// StatusInterval is the fixed status broadcast period.
	// Default: 30 seconds.
	StatusInterval time.Duration

	// EventIntervalMin and EventIntervalMax bound the uniformly drawn
	// pause between event ticks. Defaults: 10 and 60 seconds.
	EventIntervalMin time.Duration
	EventIntervalMax time.Duration

	// Seed seeds the random source. Zero means seed from the clock.
	Seed int64
}

// NewScheduler creates a scheduler over the given registry and publisher.
func NewScheduler(cfg SchedulerConfig, registry *Registry, publisher domophone.Publisher, logger Logger) *Scheduler {
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = 30 * time.Second
	}
	if cfg.EventIntervalMin <= 0 {
		cfg.EventIntervalMin = 10 * time.Second
	}
	if cfg.EventIntervalMax <= cfg.EventIntervalMin {
		cfg.EventIntervalMax = cfg.EventIntervalMin + 50*time.Second
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = noopLogger{}
	}

	// The event loop is a single goroutine, so one unshared source serves
	// both strategies and the interval draw.
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // Simulation, not crypto

	return &Scheduler{
		registry:       registry,
		publisher:      publisher,
		logger:         logger,
		statusInterval: cfg.StatusInterval,
		eventMin:       cfg.EventIntervalMin,
		eventMax:       cfg.EventIntervalMax,
		call:           domophone.NewCallStrategy(rng),
		keyUsed:        domophone.NewKeyUsedStrategy(rng),
		rng:            rng,
		done:           make(chan struct{}),
	}
}

// Start launches both loops. Call Stop to shut down.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(2)
	go s.statusLoop(ctx)
	go s.eventLoop(ctx)
}

// Stop halts both loops and waits for them to finish.
// Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

// statusLoop publishes every device's status at a fixed interval,
// offline devices included.
func (s *Scheduler) statusLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.statusInterval)
	defer ticker.Stop()

	// Initial broadcast so the monitor sees the fleet immediately.
	s.broadcastStatus()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.broadcastStatus()
		}
	}
}

func (s *Scheduler) broadcastStatus() {
	for _, ctrl := range s.registry.All() {
		ctrl.PublishStatus()
	}
}

// eventLoop sleeps a random interval, then generates one simulated event
// for each online device.
func (s *Scheduler) eventLoop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.nextEventDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-timer.C:
			s.generateEvents()
			timer.Reset(s.nextEventDelay())
		}
	}
}

// nextEventDelay draws uniformly from [eventMin, eventMax].
func (s *Scheduler) nextEventDelay() time.Duration {
	span := s.eventMax - s.eventMin
	return s.eventMin + time.Duration(s.rng.Int63n(int64(span)+1))
}

// generateEvents runs one event tick over the online devices. Each device
// gets a coin flip between a call and a key use; key use is skipped when
// the device has no keys programmed.
func (s *Scheduler) generateEvents() {
	for _, ctrl := range s.registry.All() {
		snap := ctrl.Snapshot()
		if !snap.Online {
			continue
		}

		strategy := s.call
		if s.rng.Intn(2) == 1 {
			strategy = s.keyUsed
		}

		event, ok := strategy.Generate(snap)
		if !ok {
			continue
		}
		if err := s.publisher.PublishEvent(event); err != nil {
			s.logger.Error("simulated event publish failed",
				"mac", snap.MAC, "event", event.Event, "error", err)
		}
	}
}
