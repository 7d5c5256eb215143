package fleet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

// TestRosterLoad verifies a successful fetch maps records to device state.
func TestRosterLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"mac":"AA:01","model":"DP-200","adress":"Lenina 14","apartments":30,"status":"online","keys":{"12":[1234]}},
			{"mac":"AA:02","model":"DP-100","adress":"Lenina 16","status":"offline","keys":{}}
		]`)) //nolint:errcheck
	}))
	defer srv.Close()

	loader := NewRosterLoader(RosterConfig{URL: srv.URL}, nil)
	states, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(states) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(states))
	}

	first := states[0]
	if first.MAC != "AA:01" || first.Model != "DP-200" || first.Address != "Lenina 14" {
		t.Errorf("unexpected first record: %+v", first)
	}
	if first.Apartments != 30 {
		t.Errorf("apartments = %d, want 30", first.Apartments)
	}
	if !first.Online {
		t.Error("online status should map to Online=true")
	}
	if !reflect.DeepEqual(first.Keys, map[int][]int{12: {1234}}) {
		t.Errorf("keys = %v, want {12: [1234]}", first.Keys)
	}

	second := states[1]
	if second.Online {
		t.Error("offline status should map to Online=false")
	}
	if second.Apartments != defaultApartments {
		t.Errorf("missing apartments should default to %d, got %d",
			defaultApartments, second.Apartments)
	}
}

// TestRosterUnknownStatusMapsOffline verifies that only an explicit
// "online" status starts a device online.
func TestRosterUnknownStatusMapsOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"mac":"AA:01","model":"DP-200","adress":"x","status":""},
			{"mac":"AA:02","model":"DP-200","adress":"x","status":"rebooting"},
			{"mac":"AA:03","model":"DP-200","adress":"x","status":"online"}
		]`)) //nolint:errcheck
	}))
	defer srv.Close()

	loader := NewRosterLoader(RosterConfig{URL: srv.URL}, nil)
	states, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if states[0].Online {
		t.Error("empty status should map to Online=false")
	}
	if states[1].Online {
		t.Error("unrecognized status should map to Online=false")
	}
	if !states[2].Online {
		t.Error("online status should map to Online=true")
	}
}

// TestRosterRetries verifies the fixed-delay retry budget.
func TestRosterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"mac":"AA:01","model":"DP-200","adress":"x","status":"online"}]`)) //nolint:errcheck
	}))
	defer srv.Close()

	loader := NewRosterLoader(RosterConfig{
		URL:        srv.URL,
		Attempts:   5,
		RetryDelay: time.Millisecond,
	}, nil)

	states, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("expected 1 device, got %d", len(states))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 requests, got %d", got)
	}
}

// TestRosterExhaustion verifies failure after the attempt budget is spent.
func TestRosterExhaustion(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	loader := NewRosterLoader(RosterConfig{
		URL:        srv.URL,
		Attempts:   4,
		RetryDelay: time.Millisecond,
	}, nil)

	_, err := loader.Load(context.Background())
	if !errors.Is(err, ErrRosterUnavailable) {
		t.Fatalf("error = %v, want ErrRosterUnavailable", err)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("expected 4 requests, got %d", got)
	}
}

// TestRosterEmpty verifies an empty roster is an error, not a silent
// zero-device fleet.
func TestRosterEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`)) //nolint:errcheck
	}))
	defer srv.Close()

	loader := NewRosterLoader(RosterConfig{
		URL:        srv.URL,
		Attempts:   1,
		RetryDelay: time.Millisecond,
	}, nil)

	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatal("expected error for empty roster")
	}
}

// TestRosterContextCancel verifies cancellation stops the retry loop.
func TestRosterContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := NewRosterLoader(RosterConfig{
		URL:        srv.URL,
		Attempts:   10,
		RetryDelay: time.Second,
	}, nil)

	_, err := loader.Load(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
