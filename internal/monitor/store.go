package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bogdnnx/smart-domophone/internal/infrastructure/database"
)

// Default query limits matching the dashboard's panes.
const (
	defaultRecentEvents = 25
	defaultRecentLogs   = 12
)

// Domophone is one roster row. The JSON shape doubles as the roster format
// the emulator fetches at startup, so the wire field names (including
// "adress") are fixed.
type Domophone struct {
	ID         int64         `json:"id"`
	MAC        string        `json:"mac"`
	Model      string        `json:"model"`
	Address    string        `json:"adress"`
	Apartments int           `json:"apartments"`
	Status     string        `json:"status"`
	DoorStatus string        `json:"door_status"`
	Keys       map[int][]int `json:"keys"`
	LastSeen   *time.Time    `json:"last_seen,omitempty"`
	IsActive   bool          `json:"is_active"`
}

// Event is one recorded event-topic message.
type Event struct {
	ID        int64     `json:"id"`
	MAC       string    `json:"mac"`
	EventType string    `json:"event"`
	Apartment *int      `json:"apartment,omitempty"`
	KeyID     *int      `json:"key_id,omitempty"`
	EventTime time.Time `json:"timestamp"`
}

// StatusLog is one raw status-topic observation, kept for the dashboard's
// traffic pane.
type StatusLog struct {
	ID         int64     `json:"id"`
	MAC        string    `json:"mac"`
	Status     string    `json:"status"`
	DoorStatus string    `json:"door_status"`
	Keys       string    `json:"keys"`
	Message    string    `json:"message"`
	LogTime    time.Time `json:"log_time"`
}

// Store is the monitor's SQLite persistence layer.
type Store struct {
	db *database.DB
}

// NewStore creates a store over an opened database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// UpsertStatus creates or updates the roster row for a status observation.
// New devices are admitted on first sight, mirroring how the fleet shows up
// once the emulator starts broadcasting.
func (s *Store) UpsertStatus(ctx context.Context, d Domophone) error {
	keysJSON, err := encodeKeys(d.Keys)
	if err != nil {
		return err
	}

	var lastSeen any
	if d.LastSeen != nil {
		lastSeen = d.LastSeen.UTC().Format(time.RFC3339)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO domophones (mac, model, adress, apartments, status, door_status, keys_json, last_seen, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(mac) DO UPDATE SET
			model = excluded.model,
			adress = excluded.adress,
			status = excluded.status,
			door_status = excluded.door_status,
			keys_json = excluded.keys_json,
			last_seen = excluded.last_seen,
			updated_at = datetime('now')
	`, d.MAC, d.Model, d.Address, orDefault(d.Apartments, 50),
		d.Status, d.DoorStatus, keysJSON, lastSeen)
	if err != nil {
		return fmt.Errorf("upserting domophone %s: %w", d.MAC, err)
	}
	return nil
}

// CreateDomophone inserts a new roster row. Used by the API to seed the
// fleet before the emulator's first fetch.
func (s *Store) CreateDomophone(ctx context.Context, d Domophone) error {
	keysJSON, err := encodeKeys(d.Keys)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO domophones (mac, model, adress, apartments, status, door_status, keys_json, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
	`, d.MAC, d.Model, d.Address, orDefault(d.Apartments, 50),
		orDefaultStr(d.Status, "online"), orDefaultStr(d.DoorStatus, "closed"), keysJSON)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDomophoneExists
		}
		return fmt.Errorf("creating domophone %s: %w", d.MAC, err)
	}
	return nil
}

// ListDomophones returns the whole roster ordered by model.
func (s *Store) ListDomophones(ctx context.Context) ([]Domophone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mac, model, adress, apartments, status, door_status, keys_json, last_seen, is_active
		FROM domophones
		ORDER BY model, mac
	`)
	if err != nil {
		return nil, fmt.Errorf("querying domophones: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read side

	var out []Domophone
	for rows.Next() {
		d, err := scanDomophone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDomophone returns one roster row by MAC.
func (s *Store) GetDomophone(ctx context.Context, mac string) (Domophone, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mac, model, adress, apartments, status, door_status, keys_json, last_seen, is_active
		FROM domophones
		WHERE mac = ?
	`, mac)

	d, err := scanDomophone(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Domophone{}, ErrDomophoneNotFound
	}
	return d, err
}

// SetActive flips a device's derived liveness flag.
func (s *Store) SetActive(ctx context.Context, mac string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE domophones SET is_active = ?, updated_at = datetime('now') WHERE mac = ?",
		boolToInt(active), mac)
	if err != nil {
		return fmt.Errorf("setting active for %s: %w", mac, err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // SQLite always supports RowsAffected
		return ErrDomophoneNotFound
	}
	return nil
}

// InsertEvent records one event-topic message.
func (s *Store) InsertEvent(ctx context.Context, ev Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (mac, event_type, apartment, key_id, event_time)
		VALUES (?, ?, ?, ?, ?)
	`, ev.MAC, ev.EventType, ev.Apartment, ev.KeyID,
		ev.EventTime.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events, most recent first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultRecentEvents
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mac, event_type, apartment, key_id, event_time
		FROM events
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read side

	var out []Event
	for rows.Next() {
		var ev Event
		var eventTime string
		if err := rows.Scan(&ev.ID, &ev.MAC, &ev.EventType, &ev.Apartment, &ev.KeyID, &eventTime); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev.EventTime, _ = time.Parse(time.RFC3339, eventTime) //nolint:errcheck // Format is controlled
		out = append(out, ev)
	}
	return out, rows.Err()
}

// InsertStatusLog records one raw status observation.
func (s *Store) InsertStatusLog(ctx context.Context, log StatusLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO domophone_logs (mac, status, door_status, keys_json, message)
		VALUES (?, ?, ?, ?, ?)
	`, log.MAC, log.Status, log.DoorStatus, log.Keys, log.Message)
	if err != nil {
		return fmt.Errorf("inserting status log: %w", err)
	}
	return nil
}

// RecentLogs returns the newest status logs, most recent first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]StatusLog, error) {
	if limit <= 0 {
		limit = defaultRecentLogs
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mac, status, door_status, keys_json, message, log_time
		FROM domophone_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying status logs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read side

	var out []StatusLog
	for rows.Next() {
		var log StatusLog
		var logTime string
		if err := rows.Scan(&log.ID, &log.MAC, &log.Status, &log.DoorStatus, &log.Keys, &log.Message, &logTime); err != nil {
			return nil, fmt.Errorf("scanning status log: %w", err)
		}
		log.LogTime, _ = time.Parse("2006-01-02 15:04:05", logTime) //nolint:errcheck // SQLite datetime() format
		out = append(out, log)
	}
	return out, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDomophone(row scanner) (Domophone, error) {
	var d Domophone
	var keysJSON string
	var lastSeen sql.NullString
	var active int

	err := row.Scan(&d.ID, &d.MAC, &d.Model, &d.Address, &d.Apartments,
		&d.Status, &d.DoorStatus, &keysJSON, &lastSeen, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Domophone{}, err
		}
		return Domophone{}, fmt.Errorf("scanning domophone: %w", err)
	}

	d.IsActive = active != 0
	if lastSeen.Valid {
		if t, err := time.Parse(time.RFC3339, lastSeen.String); err == nil {
			d.LastSeen = &t
		}
	}
	if err := json.Unmarshal([]byte(keysJSON), &d.Keys); err != nil {
		d.Keys = map[int][]int{}
	}
	return d, nil
}

func encodeKeys(keys map[int][]int) (string, error) {
	if keys == nil {
		keys = map[int][]int{}
	}
	b, err := json.Marshal(keys)
	if err != nil {
		return "", fmt.Errorf("encoding keys: %w", err)
	}
	return string(b), nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
