package domophone

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

// mockPublisher records published messages for assertions.
// Safe for concurrent use.
type mockPublisher struct {
	mu       sync.Mutex
	statuses []StatusMessage
	events   []EventMessage
	fail     bool
}

func (m *mockPublisher) PublishStatus(msg StatusMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("publish failed")
	}
	m.statuses = append(m.statuses, msg)
	return nil
}

func (m *mockPublisher) PublishEvent(msg EventMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("publish failed")
	}
	m.events = append(m.events, msg)
	return nil
}

func (m *mockPublisher) statusCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.statuses)
}

func (m *mockPublisher) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *mockPublisher) lastStatus(t *testing.T) StatusMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.statuses) == 0 {
		t.Fatal("no status published")
	}
	return m.statuses[len(m.statuses)-1]
}

func (m *mockPublisher) lastEvent(t *testing.T) EventMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		t.Fatal("no event published")
	}
	return m.events[len(m.events)-1]
}

func newTestController(pub *mockPublisher) *Controller {
	return NewController(State{
		MAC:         "AA:BB:CC:DD:EE:01",
		Model:       "DP-200",
		Address:     "Lenina 14",
		Apartments:  50,
		Online:      true,
		LockEngaged: true,
	}, pub, nil)
}

// TestCallToFlat verifies call event emission and range checking.
func TestCallToFlat(t *testing.T) {
	tests := []struct {
		name      string
		flat      int
		wantEvent bool
	}{
		{name: "first flat", flat: 1, wantEvent: true},
		{name: "last flat", flat: 50, wantEvent: true},
		{name: "zero flat", flat: 0, wantEvent: false},
		{name: "negative flat", flat: -3, wantEvent: false},
		{name: "above range", flat: 51, wantEvent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			ctrl := newTestController(pub)

			ctrl.CallToFlat(tt.flat)

			if !tt.wantEvent {
				if pub.eventCount() != 0 {
					t.Fatalf("expected no event, got %d", pub.eventCount())
				}
				return
			}

			if pub.eventCount() != 1 {
				t.Fatalf("expected 1 event, got %d", pub.eventCount())
			}
			ev := pub.lastEvent(t)
			if ev.Event != EventCall {
				t.Errorf("event = %q, want %q", ev.Event, EventCall)
			}
			if ev.Apartment != tt.flat {
				t.Errorf("apartment = %d, want %d", ev.Apartment, tt.flat)
			}
			if ev.MAC != ctrl.MAC() {
				t.Errorf("mac = %q, want %q", ev.MAC, ctrl.MAC())
			}
		})
	}
}

// TestAddKeys verifies idempotent union semantics.
func TestAddKeys(t *testing.T) {
	pub := &mockPublisher{}
	ctrl := newTestController(pub)

	ctrl.AddKeys(12, []int{1001, 1002})
	ctrl.AddKeys(12, []int{1002, 1003})

	snap := ctrl.Snapshot()
	want := []int{1001, 1002, 1003}
	if !reflect.DeepEqual(snap.Keys[12], want) {
		t.Errorf("keys[12] = %v, want %v", snap.Keys[12], want)
	}

	// Both adds publish status even when the second is partially redundant
	if pub.statusCount() != 2 {
		t.Errorf("expected 2 status messages, got %d", pub.statusCount())
	}
}

// TestAddKeysOutOfRange verifies out-of-range apartments are a no-op.
func TestAddKeysOutOfRange(t *testing.T) {
	pub := &mockPublisher{}
	ctrl := newTestController(pub)

	ctrl.AddKeys(51, []int{1001})

	if len(ctrl.Snapshot().Keys) != 0 {
		t.Error("expected no keys after out-of-range add")
	}
	if pub.statusCount() != 0 {
		t.Errorf("expected no status, got %d", pub.statusCount())
	}
}

// TestRemoveKeys verifies removal and empty-entry cleanup.
func TestRemoveKeys(t *testing.T) {
	t.Run("removes last key deletes entry", func(t *testing.T) {
		pub := &mockPublisher{}
		ctrl := newTestController(pub)
		ctrl.AddKeys(5, []int{777})

		changed := ctrl.RemoveKeys(5, []int{777})
		if !changed {
			t.Fatal("expected change")
		}

		snap := ctrl.Snapshot()
		if _, exists := snap.Keys[5]; exists {
			t.Error("apartment entry should be deleted when set empties")
		}
	})

	t.Run("no change for unknown apartment", func(t *testing.T) {
		pub := &mockPublisher{}
		ctrl := newTestController(pub)

		if ctrl.RemoveKeys(9, []int{1}) {
			t.Error("expected no change")
		}
		if pub.statusCount() != 0 {
			t.Errorf("expected no status, got %d", pub.statusCount())
		}
	})

	t.Run("no change for unmatched keys", func(t *testing.T) {
		pub := &mockPublisher{}
		ctrl := newTestController(pub)
		ctrl.AddKeys(5, []int{777})
		before := pub.statusCount()

		if ctrl.RemoveKeys(5, []int{888}) {
			t.Error("expected no change")
		}
		if pub.statusCount() != before {
			t.Error("status should not be published when nothing changed")
		}
	})
}

// TestHandleCommandIdentifierMismatch verifies the per-controller gate.
func TestHandleCommandIdentifierMismatch(t *testing.T) {
	pub := &mockPublisher{}
	ctrl := newTestController(pub)

	err := ctrl.HandleCommand(Command{
		Identifier: "FF:FF:FF:FF:FF:FF",
		Name:       CmdOpenDoor,
	})
	if !errors.Is(err, ErrIdentifierMismatch) {
		t.Fatalf("error = %v, want ErrIdentifierMismatch", err)
	}

	if ctrl.Snapshot().DoorOpen {
		t.Error("door state must not change on mismatched command")
	}
	if pub.statusCount() != 0 || pub.eventCount() != 0 {
		t.Error("mismatched command must emit nothing")
	}
}

// TestHandleCommandOpenDoor verifies the open_door transition and emissions.
func TestHandleCommandOpenDoor(t *testing.T) {
	pub := &mockPublisher{}
	ctrl := newTestController(pub)

	err := ctrl.HandleCommand(Command{Identifier: ctrl.MAC(), Name: CmdOpenDoor})
	if err != nil {
		t.Fatalf("HandleCommand() error = %v", err)
	}

	if !ctrl.Snapshot().DoorOpen {
		t.Error("door should be open")
	}
	if pub.statusCount() != 1 {
		t.Fatalf("expected 1 status, got %d", pub.statusCount())
	}
	if got := pub.lastStatus(t).DoorStatus; got != DoorStatusOpen {
		t.Errorf("door_status = %q, want %q", got, DoorStatusOpen)
	}
	if pub.eventCount() != 1 {
		t.Fatalf("expected 1 event, got %d", pub.eventCount())
	}
	if got := pub.lastEvent(t).Event; got != EventDoorOpened {
		t.Errorf("event = %q, want %q", got, EventDoorOpened)
	}
}

// TestHandleCommandDoorIdempotentEmission verifies a no-op transition still emits.
func TestHandleCommandDoorIdempotentEmission(t *testing.T) {
	pub := &mockPublisher{}
	ctrl := newTestController(pub)

	ctrl.HandleCommand(Command{Identifier: ctrl.MAC(), Name: CmdOpenDoor}) //nolint:errcheck
	ctrl.HandleCommand(Command{Identifier: ctrl.MAC(), Name: CmdOpenDoor}) //nolint:errcheck

	if pub.eventCount() != 2 {
		t.Errorf("expected 2 door_opened events, got %d", pub.eventCount())
	}
	if pub.statusCount() != 2 {
		t.Errorf("expected 2 status messages, got %d", pub.statusCount())
	}
}

// TestHandleCommandActivation verifies make_active / make_unactive.
func TestHandleCommandActivation(t *testing.T) {
	pub := &mockPublisher{}
	ctrl := newTestController(pub)

	ctrl.HandleCommand(Command{Identifier: ctrl.MAC(), Name: CmdUnactive}) //nolint:errcheck
	if ctrl.Snapshot().Online {
		t.Error("device should be offline")
	}
	if got := pub.lastStatus(t).Status; got != StatusOffline {
		t.Errorf("status = %q, want %q", got, StatusOffline)
	}
	if got := pub.lastEvent(t).Event; got != EventDeactivated {
		t.Errorf("event = %q, want %q", got, EventDeactivated)
	}

	ctrl.HandleCommand(Command{Identifier: ctrl.MAC(), Name: CmdMakeActive}) //nolint:errcheck
	if !ctrl.Snapshot().Online {
		t.Error("device should be online")
	}
	if got := pub.lastStatus(t).Status; got != StatusOnline {
		t.Errorf("status = %q, want %q", got, StatusOnline)
	}
	if got := pub.lastEvent(t).Event; got != EventActivated {
		t.Errorf("event = %q, want %q", got, EventActivated)
	}
}

// TestHandleCommandUnknown verifies unknown names surface ErrUnknownCommand.
func TestHandleCommandUnknown(t *testing.T) {
	ctrl := newTestController(&mockPublisher{})

	err := ctrl.HandleCommand(Command{Identifier: ctrl.MAC(), Name: "reboot"})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("error = %v, want ErrUnknownCommand", err)
	}
}

// TestConcurrentKeyOperations verifies concurrent adds and removes of
// disjoint sets produce the same registry as the serial equivalent.
func TestConcurrentKeyOperations(t *testing.T) {
	const workers = 20

	concurrent := newTestController(&mockPublisher{})
	serial := newTestController(&mockPublisher{})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			// Each worker adds its own keys to apartment 1 and removes a
			// disjoint set it never added. Removes of absent keys are no-ops,
			// so only the adds survive.
			concurrent.AddKeys(1, []int{1000 + n})
			concurrent.RemoveKeys(1, []int{5000 + n})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		serial.AddKeys(1, []int{1000 + i})
		serial.RemoveKeys(1, []int{5000 + i})
	}

	got := concurrent.Snapshot().Keys
	want := serial.Snapshot().Keys
	if !reflect.DeepEqual(got, want) {
		t.Errorf("concurrent result %v != serial result %v", got, want)
	}
	if len(got[1]) != workers {
		t.Errorf("expected %d keys in apartment 1, got %d", workers, len(got[1]))
	}
}

// TestAddRemoveScenario runs the canonical add-then-remove flow.
func TestAddRemoveScenario(t *testing.T) {
	pub := &mockPublisher{}
	ctrl := NewController(State{
		MAC:        "A1",
		Apartments: 50,
		Online:     true,
	}, pub, nil)

	add, err := ParseCommand([]byte(`{"identifier":"A1","command":"add_keys","apartment":12,"keys":[1234,5678]}`))
	if err != nil {
		t.Fatalf("ParseCommand(add) error = %v", err)
	}
	if err := ctrl.HandleCommand(add); err != nil {
		t.Fatalf("HandleCommand(add) error = %v", err)
	}

	remove, err := ParseCommand([]byte(`{"identifier":"A1","command":"remove_keys","apartment":12,"keys":[1234]}`))
	if err != nil {
		t.Fatalf("ParseCommand(remove) error = %v", err)
	}
	if err := ctrl.HandleCommand(remove); err != nil {
		t.Fatalf("HandleCommand(remove) error = %v", err)
	}

	want := map[int][]int{12: {5678}}
	if got := ctrl.Snapshot().Keys; !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

// TestPublishFailureDoesNotPanic verifies publish errors are swallowed.
func TestPublishFailureDoesNotPanic(t *testing.T) {
	pub := &mockPublisher{fail: true}
	ctrl := newTestController(pub)

	ctrl.AddKeys(3, []int{42})
	ctrl.CallToFlat(3)
	ctrl.PublishStatus()

	// State still mutated despite publish failures
	if len(ctrl.Snapshot().Keys[3]) != 1 {
		t.Error("state should change even when publishing fails")
	}
}

// TestNewControllerNormalizesKeys verifies registry normalization at construction.
func TestNewControllerNormalizesKeys(t *testing.T) {
	ctrl := NewController(State{
		MAC:        "A1",
		Apartments: 10,
		Keys: map[int][]int{
			1: {3, 1, 3, 2},
			2: {},
		},
	}, &mockPublisher{}, nil)

	snap := ctrl.Snapshot()
	if !reflect.DeepEqual(snap.Keys[1], []int{1, 2, 3}) {
		t.Errorf("keys[1] = %v, want sorted deduplicated set", snap.Keys[1])
	}
	if _, exists := snap.Keys[2]; exists {
		t.Error("empty apartment entry should be dropped")
	}
}
