// Package spin models the simplified two-valued quantum spin carried
// by simulated particles.
//
// A spin state is a unit vector in the X-Z plane of the experiment.
// The closed set of discrete orientations covers the outcomes an
// analyzer can produce; arbitrary preparations are expressed as
// validated custom unit vectors. This is a deliberate classical
// reduction for teaching purposes, not a full quantum state.
package spin

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/spinlab/internal/geom"
)

// UnitTolerance is the accepted deviation from unit length for custom
// state vectors.
const UnitTolerance = 1e-9

var (
	// ErrNotUnit indicates a custom state vector without unit length.
	ErrNotUnit = errors.New("spin: state vector must have unit length")

	// ErrProbabilityPair indicates up/down probabilities that are not
	// complementary or not in [0,1].
	ErrProbabilityPair = errors.New("spin: probabilities must lie in [0,1] and sum to 1")
)

// Orientation is one of the discrete spin states an analyzer can
// produce or a source can prepare.
type Orientation int

const (
	ZPlus Orientation = iota
	ZMinus
	XPlus
	// XMinus is the "down" outcome of an X-oriented analyzer. It is a
	// legal measured state but is not offered as a preparation preset.
	XMinus
)

// Vector returns the unit vector for the orientation, (x, z).
func (o Orientation) Vector() geom.Vec2 {
	switch o {
	case ZPlus:
		return geom.Vec2{X: 0, Y: 1}
	case ZMinus:
		return geom.Vec2{X: 0, Y: -1}
	case XPlus:
		return geom.Vec2{X: 1, Y: 0}
	case XMinus:
		return geom.Vec2{X: -1, Y: 0}
	default:
		panic(fmt.Sprintf("spin: unknown orientation %d", int(o)))
	}
}

func (o Orientation) String() string {
	switch o {
	case ZPlus:
		return "Z+"
	case ZMinus:
		return "Z-"
	case XPlus:
		return "X+"
	case XMinus:
		return "X-"
	default:
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
}

// State is a spin state: either a discrete orientation or a custom
// unit vector. The zero value is Z+.
type State struct {
	orientation Orientation
	custom      bool
	vec         geom.Vec2
}

// FromOrientation wraps a discrete orientation as a state.
func FromOrientation(o Orientation) State {
	o.Vector() // panics on unknown values
	return State{orientation: o}
}

// FromVector builds a custom state from an arbitrary unit vector.
func FromVector(v geom.Vec2) (State, error) {
	if !v.IsValid() || math.Abs(v.Norm()-1) > UnitTolerance {
		return State{}, fmt.Errorf("%w: |(%g, %g)| = %g", ErrNotUnit, v.X, v.Y, v.Norm())
	}
	return State{custom: true, vec: v}, nil
}

// FromProbabilities builds the custom state whose Z-measurement "up"
// probability is pUp. The pair must be complementary; the X component
// takes the positive branch.
func FromProbabilities(pUp, pDown float64) (State, error) {
	if pUp < 0 || pUp > 1 || pDown < 0 || pDown > 1 || math.Abs(pUp+pDown-1) > UnitTolerance {
		return State{}, fmt.Errorf("%w: got %g and %g", ErrProbabilityPair, pUp, pDown)
	}
	z := 2*pUp - 1
	x := math.Sqrt(math.Max(0, 1-z*z))
	return State{custom: true, vec: geom.Vec2{X: x, Y: z}}, nil
}

// Vector returns the unit vector of the state.
func (s State) Vector() geom.Vec2 {
	if s.custom {
		return s.vec
	}
	return s.orientation.Vector()
}

// Discrete reports the orientation when the state is one of the
// closed presets.
func (s State) Discrete() (Orientation, bool) {
	if s.custom {
		return 0, false
	}
	return s.orientation, true
}

func (s State) String() string {
	if s.custom {
		return fmt.Sprintf("custom(%.3f, %.3f)", s.vec.X, s.vec.Y)
	}
	return s.orientation.String()
}
