package rate

import "math"

// Emitter converts a continuous target emission rate into a whole
// number of activations per step. The fractional remainder of each
// step carries over, so the long-run average matches the target rate
// regardless of dt variability.
type Emitter struct {
	accumulator float64
}

// Tick returns how many particles to activate this step for the given
// target rate (particles/second) and step duration.
func (e *Emitter) Tick(target, dt float64) int {
	if dt < 0 {
		panic(ErrNegativeStep)
	}
	if target < 0 {
		target = 0
	}
	exact := target * dt
	whole := math.Floor(exact)
	e.accumulator += exact - whole
	if e.accumulator >= 1 {
		whole++
		e.accumulator--
	}
	return int(whole)
}

// Reset clears the fractional carry.
func (e *Emitter) Reset() {
	e.accumulator = 0
}
