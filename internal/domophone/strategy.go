package domophone

import (
	"math/rand"
	"sort"
	"time"
)

// EventStrategy generates a simulated event from a device snapshot.
// Generate returns false when the snapshot doesn't satisfy the strategy's
// preconditions; the caller skips publishing. Strategies never mutate state
// and never fail.
type EventStrategy interface {
	Generate(snap Snapshot) (EventMessage, bool)
}

// CallStrategy simulates a visitor calling a random flat.
type CallStrategy struct {
	rng *rand.Rand
	now func() time.Time
}

// NewCallStrategy creates a call strategy using the given random source.
// The source must not be shared across goroutines.
func NewCallStrategy(rng *rand.Rand) *CallStrategy {
	return &CallStrategy{rng: rng, now: time.Now}
}

// Generate picks a uniformly random flat in [1, Apartments].
func (s *CallStrategy) Generate(snap Snapshot) (EventMessage, bool) {
	if snap.Apartments < 1 {
		return EventMessage{}, false
	}
	return EventMessage{
		Event:     EventCall,
		MAC:       snap.MAC,
		Timestamp: s.now().Unix(),
		Apartment: 1 + s.rng.Intn(snap.Apartments),
	}, true
}

// KeyUsedStrategy simulates a resident using a programmed key.
type KeyUsedStrategy struct {
	rng *rand.Rand
	now func() time.Time
}

// NewKeyUsedStrategy creates a key_used strategy using the given random
// source. The source must not be shared across goroutines.
func NewKeyUsedStrategy(rng *rand.Rand) *KeyUsedStrategy {
	return &KeyUsedStrategy{rng: rng, now: time.Now}
}

// Generate picks a uniformly random apartment among those with keys, then a
// uniformly random key from that apartment's set. Returns false when the
// device has no keys programmed.
func (s *KeyUsedStrategy) Generate(snap Snapshot) (EventMessage, bool) {
	if len(snap.Keys) == 0 {
		return EventMessage{}, false
	}

	// Sorted apartment list keeps the pick reproducible with a seeded source.
	apartments := make([]int, 0, len(snap.Keys))
	for apt, ids := range snap.Keys {
		if len(ids) > 0 {
			apartments = append(apartments, apt)
		}
	}
	if len(apartments) == 0 {
		return EventMessage{}, false
	}
	sort.Ints(apartments)

	apt := apartments[s.rng.Intn(len(apartments))]
	keys := snap.Keys[apt]

	return EventMessage{
		Event:     EventKeyUsed,
		MAC:       snap.MAC,
		Timestamp: s.now().Unix(),
		Apartment: apt,
		KeyID:     keys[s.rng.Intn(len(keys))],
	}, true
}
