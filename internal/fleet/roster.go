package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bogdnnx/smart-domophone/internal/domophone"
)

// Roster loading constants.
const (
	defaultRosterAttempts   = 10
	defaultRosterRetryDelay = 3 * time.Second
	defaultApartments       = 50

	rosterRequestTimeout = 10 * time.Second

	// maxRosterBody caps the roster response size (1 MB).
	maxRosterBody = 1 << 20
)

// RosterConfig controls the startup fleet fetch.
type RosterConfig struct {
	// URL is the roster endpoint on the monitor service.
	URL string

	// Attempts is how many times to try before giving up. Exhaustion is
	// fatal: the emulator must not start without a fleet.
	Attempts int

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration

	// Apartments is the flat count used when a record omits one.
	Apartments int
}

// rosterDevice is one record in the roster response. Field names, including
// the "adress" spelling, match the monitor's wire format.
type rosterDevice struct {
	MAC        string        `json:"mac"`
	Model      string        `json:"model"`
	Address    string        `json:"adress"`
	Apartments int           `json:"apartments"`
	Status     string        `json:"status"`
	Keys       map[int][]int `json:"keys"`
}

// RosterLoader fetches the fleet roster from the monitor at startup.
type RosterLoader struct {
	cfg    RosterConfig
	client *http.Client
	logger Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRosterLoader creates a loader with defaults applied for any zero
// config fields.
func NewRosterLoader(cfg RosterConfig, logger Logger) *RosterLoader {
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultRosterAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRosterRetryDelay
	}
	if cfg.Apartments <= 0 {
		cfg.Apartments = defaultApartments
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &RosterLoader{
		cfg:    cfg,
		client: &http.Client{Timeout: rosterRequestTimeout},
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Load fetches the roster, retrying with a fixed delay until the attempt
// budget is spent. Returns ErrRosterUnavailable once exhausted; callers
// treat that as fatal.
func (l *RosterLoader) Load(ctx context.Context) ([]domophone.State, error) {
	var lastErr error

	for attempt := 1; attempt <= l.cfg.Attempts; attempt++ {
		states, err := l.fetch(ctx)
		if err == nil {
			l.logger.Info("roster loaded",
				"devices", len(states), "attempt", attempt)
			return states, nil
		}
		lastErr = err
		l.logger.Warn("roster fetch failed",
			"attempt", attempt, "of", l.cfg.Attempts, "error", err)

		if attempt < l.cfg.Attempts {
			if err := l.sleep(ctx, l.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("%w: %d attempts failed, last: %v",
		ErrRosterUnavailable, l.cfg.Attempts, lastErr)
}

// fetch performs one roster request.
func (l *RosterLoader) fetch(ctx context.Context) ([]domophone.State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building roster request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting roster: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read side, nothing to handle

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roster returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRosterBody))
	if err != nil {
		return nil, fmt.Errorf("reading roster body: %w", err)
	}

	var records []rosterDevice
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decoding roster: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyRoster
	}

	states := make([]domophone.State, 0, len(records))
	for _, rec := range records {
		apartments := rec.Apartments
		if apartments <= 0 {
			apartments = l.cfg.Apartments
		}
		states = append(states, domophone.State{
			MAC:         rec.MAC,
			Model:       rec.Model,
			Address:     rec.Address,
			Apartments:  apartments,
			Online:      rec.Status == domophone.StatusOnline,
			LockEngaged: true,
			Keys:        rec.Keys,
		})
	}
	return states, nil
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
