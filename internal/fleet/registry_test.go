package fleet

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bogdnnx/smart-domophone/internal/domophone"
)

func testController(mac string) *domophone.Controller {
	return domophone.NewController(domophone.State{
		MAC:        mac,
		Apartments: 50,
		Online:     true,
	}, nil, nil)
}

// TestRegistryAddGet verifies registration and lookup.
func TestRegistryAddGet(t *testing.T) {
	reg := NewRegistry()

	ctrl := testController("AA:01")
	if err := reg.Add(ctrl); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, ok := reg.Get("AA:01")
	if !ok {
		t.Fatal("Get() did not find registered device")
	}
	if got != ctrl {
		t.Error("Get() returned a different controller")
	}

	if _, ok := reg.Get("FF:FF"); ok {
		t.Error("Get() found an unregistered MAC")
	}
}

// TestRegistryDuplicate verifies duplicate MACs are rejected.
func TestRegistryDuplicate(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Add(testController("AA:01")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := reg.Add(testController("AA:01")); !errors.Is(err, ErrDuplicateDevice) {
		t.Errorf("error = %v, want ErrDuplicateDevice", err)
	}
}

// TestRegistryAll verifies iteration covers the whole fleet.
func TestRegistryAll(t *testing.T) {
	reg := NewRegistry()

	const n = 5
	for i := 0; i < n; i++ {
		if err := reg.Add(testController(fmt.Sprintf("AA:%02d", i))); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	if reg.Count() != n {
		t.Errorf("Count() = %d, want %d", reg.Count(), n)
	}

	seen := make(map[string]bool)
	for _, ctrl := range reg.All() {
		seen[ctrl.MAC()] = true
	}
	if len(seen) != n {
		t.Errorf("All() returned %d distinct devices, want %d", len(seen), n)
	}
}
