package monitor

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bogdnnx/smart-domophone/internal/infrastructure/config"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/logging"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/mqtt"
)

func newTestServer(t *testing.T) (*Server, *fakeBus) {
	t.Helper()

	store := openTestStore(t)
	bus := &fakeBus{}
	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 8000},
		Logger: logging.Nop(),
		Store:  store,
		Bus:    bus,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, bus
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestListDomophonesEmptyRoster(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/domophones", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	// The emulator parses this directly, so an empty roster must still be
	// a JSON array.
	if got := bytes.TrimSpace(rec.Body.Bytes()); string(got) != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestCreateAndListDomophones(t *testing.T) {
	srv, _ := newTestServer(t)

	create := map[string]any{
		"mac":        "AA:BB:CC:DD:EE:01",
		"model":      "DP-200",
		"adress":     "Lenina 14",
		"apartments": 30,
		"keys":       map[string][]int{"12": {1234}},
	}
	rec := doRequest(t, srv, http.MethodPost, "/domophones", create)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created Domophone
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal created: %v", err)
	}
	if created.MAC != "AA:BB:CC:DD:EE:01" || created.Apartments != 30 {
		t.Errorf("created = %+v", created)
	}

	// Duplicate MAC conflicts.
	rec = doRequest(t, srv, http.MethodPost, "/domophones", create)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}

	// Missing MAC is a bad request.
	rec = doRequest(t, srv, http.MethodPost, "/domophones", map[string]any{"model": "DP-100"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing mac status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/domophones", nil)
	var roster []Domophone
	if err := json.Unmarshal(rec.Body.Bytes(), &roster); err != nil {
		t.Fatalf("unmarshal roster: %v", err)
	}
	if len(roster) != 1 {
		t.Errorf("roster size = %d, want 1", len(roster))
	}
}

func TestGetDomophone(t *testing.T) {
	srv, _ := newTestServer(t)

	doRequest(t, srv, http.MethodPost, "/domophones", map[string]any{"mac": "AA:BB:CC:DD:EE:01"})

	rec := doRequest(t, srv, http.MethodGet, "/domophones/AA:BB:CC:DD:EE:01", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/domophones/FF:FF:FF:FF:FF:FF", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown mac status = %d, want 404", rec.Code)
	}

	var apiErr APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if apiErr.Code != ErrCodeNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Code, ErrCodeNotFound)
	}
}

func TestRecentEventsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/events/recent", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := bytes.TrimSpace(rec.Body.Bytes()); string(got) != "[]" {
		t.Errorf("empty body = %s, want []", got)
	}

	rec = doRequest(t, srv, http.MethodGet, "/logs/recent?limit=3", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("logs status = %d, want 200", rec.Code)
	}
}

func TestHandleCommand(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{
			name:       "open door",
			body:       map[string]any{"identifier": "AA:BB:CC:DD:EE:01", "command": "open_door"},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "mac field accepted for identifier",
			body:       map[string]any{"mac": "AA:BB:CC:DD:EE:01", "command": "close_door"},
			wantStatus: http.StatusAccepted,
		},
		{
			name: "call to flat",
			body: map[string]any{
				"identifier": "AA:BB:CC:DD:EE:01", "command": "call_to_flat", "flat_number": 7,
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name: "add keys",
			body: map[string]any{
				"identifier": "AA:BB:CC:DD:EE:01", "command": "add_keys",
				"apartment": 12, "keys": []int{1234, 5678},
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "missing identifier",
			body:       map[string]any{"command": "open_door"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing command",
			body:       map[string]any{"identifier": "AA:BB:CC:DD:EE:01"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown command",
			body:       map[string]any{"identifier": "AA:BB:CC:DD:EE:01", "command": "self_destruct"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "call without flat number",
			body:       map[string]any{"identifier": "AA:BB:CC:DD:EE:01", "command": "call_to_flat"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "call with non-positive flat number",
			body: map[string]any{
				"identifier": "AA:BB:CC:DD:EE:01", "command": "call_to_flat", "flat_number": 0,
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "add keys without keys",
			body: map[string]any{
				"identifier": "AA:BB:CC:DD:EE:01", "command": "add_keys", "apartment": 12,
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "remove keys with negative key",
			body: map[string]any{
				"identifier": "AA:BB:CC:DD:EE:01", "command": "remove_keys",
				"apartment": 12, "keys": []int{-5},
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, bus := newTestServer(t)

			rec := doRequest(t, srv, http.MethodPost, "/command", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantStatus == http.StatusAccepted {
				if bus.publishCount() != 1 {
					t.Fatalf("publish count = %d, want 1", bus.publishCount())
				}
				bus.mu.Lock()
				topic := bus.topics[0]
				var payload map[string]any
				err := json.Unmarshal(bus.payloads[0], &payload)
				bus.mu.Unlock()
				if err != nil {
					t.Fatalf("unmarshal published payload: %v", err)
				}
				if topic != mqtt.TopicCommands {
					t.Errorf("topic = %q, want %q", topic, mqtt.TopicCommands)
				}
				if payload["identifier"] != "AA:BB:CC:DD:EE:01" {
					t.Errorf("identifier = %v", payload["identifier"])
				}
				if payload["command"] != tt.body["command"] {
					t.Errorf("command = %v, want %v", payload["command"], tt.body["command"])
				}
			} else if bus.publishCount() != 0 {
				t.Errorf("rejected command must not be published")
			}
		})
	}
}

func TestCommandInvalidJSON(t *testing.T) {
	srv, bus := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if bus.publishCount() != 0 {
		t.Errorf("malformed command must not be published")
	}
}
