package sim

import "fmt"

// arena is a fixed-capacity particle pool with stable slot indices.
// Slots are never reordered, so external consumers can key off them.
type arena struct {
	source Source
	parts  []Particle
}

func newArena(source Source, capacity int) *arena {
	if capacity <= 0 {
		panic(fmt.Errorf("sim: %s arena capacity must be positive, got %d", source, capacity))
	}
	return &arena{source: source, parts: make([]Particle, capacity)}
}

// acquire returns the lowest free slot index. Exhaustion is a
// precondition violation.
func (a *arena) acquire() int {
	for i := range a.parts {
		if !a.parts[i].active {
			return i
		}
	}
	panic(fmt.Errorf("%w: %s arena at capacity %d", ErrPoolExhausted, a.source, len(a.parts)))
}

func (a *arena) activeCount() int {
	n := 0
	for i := range a.parts {
		if a.parts[i].active {
			n++
		}
	}
	return n
}

func (a *arena) deactivateAll() {
	for i := range a.parts {
		a.parts[i].Deactivate()
	}
}
