// Package apparatus implements a single Stern-Gerlach style
// measurement stage: an analyzer with a fixed axis that stochastically
// classifies incoming spins as "up" or "down" and tallies outcomes.
package apparatus

import (
	"errors"
	"fmt"

	"github.com/san-kum/spinlab/internal/geom"
	"github.com/san-kum/spinlab/internal/rate"
	"github.com/san-kum/spinlab/internal/spin"
)

// ErrProbabilityRange indicates a computed probability outside [0,1],
// which can only happen through a programming error upstream.
var ErrProbabilityRange = errors.New("apparatus: probability outside [0,1]")

// BlockingMode removes particles arriving on a given branch instead of
// letting them continue.
type BlockingMode int

const (
	BlockNone BlockingMode = iota
	BlockUpExit
	BlockDownExit
)

func (m BlockingMode) String() string {
	switch m {
	case BlockNone:
		return "none"
	case BlockUpExit:
		return "block-up"
	case BlockDownExit:
		return "block-down"
	default:
		return fmt.Sprintf("BlockingMode(%d)", int(m))
	}
}

// Anchor offsets relative to the apparatus position. Entrance sits on
// the left face; the two exits sit on the right face, deflected
// vertically.
var (
	entranceOffset = geom.Vec2{X: -0.5, Y: 0}
	topExitOffset  = geom.Vec2{X: 0.5, Y: 0.25}
	botExitOffset  = geom.Vec2{X: 0.5, Y: -0.25}
)

// Estimator window parameters shared by every apparatus counter.
const (
	counterBucketDuration = 0.2
	counterWindowDuration = 1.0
)

// Apparatus lives for the whole session; orientation, position, and
// blocking mode mutate in place.
type Apparatus struct {
	position  geom.Vec2
	zOriented bool
	blocking  BlockingMode
	enabled   bool

	upRate   *rate.Estimator
	downRate *rate.Estimator

	upCount   int
	downCount int

	entrance geom.Vec2
	topExit  geom.Vec2
	botExit  geom.Vec2
}

func New(zOriented bool) *Apparatus {
	up, err := rate.NewEstimator(counterBucketDuration, counterWindowDuration)
	if err != nil {
		panic(err)
	}
	down, err := rate.NewEstimator(counterBucketDuration, counterWindowDuration)
	if err != nil {
		panic(err)
	}
	a := &Apparatus{
		zOriented: zOriented,
		enabled:   true,
		upRate:    up,
		downRate:  down,
	}
	a.recomputeAnchors()
	return a
}

// Axis returns the measurement axis as a unit vector: (0,1) for a
// Z-oriented analyzer, (1,0) for an X-oriented one.
func (a *Apparatus) Axis() geom.Vec2 {
	if a.zOriented {
		return geom.Vec2{X: 0, Y: 1}
	}
	return geom.Vec2{X: 1, Y: 0}
}

// UpProbability is the pure projection rule: p = (s·axis + 1) / 2.
// For unit vectors the dot product lies in [-1,1], so p lies in [0,1]
// by construction; anything else panics.
func (a *Apparatus) UpProbability(s spin.State) float64 {
	p := (s.Vector().Dot(a.Axis()) + 1) / 2
	if p < 0 || p > 1 {
		panic(fmt.Errorf("%w: %g for state %v", ErrProbabilityRange, p, s))
	}
	return p
}

// RecordOutcome tallies one resolved measurement. It has no effect on
// probability or routing.
func (a *Apparatus) RecordOutcome(up bool) {
	if up {
		a.upCount++
		a.upRate.RecordEvent()
	} else {
		a.downCount++
		a.downRate.RecordEvent()
	}
}

// Step advances the outcome-rate windows.
func (a *Apparatus) Step(dt float64) {
	a.upRate.Step(dt)
	a.downRate.Step(dt)
}

// Reset clears the rate estimators and counters. Orientation,
// position, and blocking mode persist.
func (a *Apparatus) Reset() {
	a.upRate.Reset()
	a.downRate.Reset()
	a.upCount = 0
	a.downCount = 0
}

func (a *Apparatus) ZOriented() bool { return a.zOriented }

func (a *Apparatus) SetOrientation(zOriented bool) {
	a.zOriented = zOriented
}

func (a *Apparatus) Blocking() BlockingMode { return a.blocking }

func (a *Apparatus) SetBlocking(m BlockingMode) {
	a.blocking = m
}

func (a *Apparatus) Enabled() bool { return a.enabled }

func (a *Apparatus) SetEnabled(enabled bool) {
	a.enabled = enabled
}

func (a *Apparatus) Position() geom.Vec2 { return a.position }

func (a *Apparatus) SetPosition(p geom.Vec2) {
	a.position = p
	a.recomputeAnchors()
}

func (a *Apparatus) recomputeAnchors() {
	a.entrance = a.position.Add(entranceOffset)
	a.topExit = a.position.Add(topExitOffset)
	a.botExit = a.position.Add(botExitOffset)
}

func (a *Apparatus) Entrance() geom.Vec2   { return a.entrance }
func (a *Apparatus) TopExit() geom.Vec2    { return a.topExit }
func (a *Apparatus) BottomExit() geom.Vec2 { return a.botExit }

// Exit returns the anchor matching a measurement outcome.
func (a *Apparatus) Exit(up bool) geom.Vec2 {
	if up {
		return a.topExit
	}
	return a.botExit
}

// UpRate and DownRate are the published windowed outcome rates in
// particles per second.
func (a *Apparatus) UpRate() float64   { return a.upRate.Rate() }
func (a *Apparatus) DownRate() float64 { return a.downRate.Rate() }

// Counts returns the lifetime up/down tallies since the last reset.
func (a *Apparatus) Counts() (up, down int) {
	return a.upCount, a.downCount
}

// MeasuredState maps an outcome to the resulting spin state for this
// analyzer's orientation. An X-oriented "down" yields X-.
func (a *Apparatus) MeasuredState(up bool) spin.State {
	switch {
	case a.zOriented && up:
		return spin.FromOrientation(spin.ZPlus)
	case a.zOriented:
		return spin.FromOrientation(spin.ZMinus)
	case up:
		return spin.FromOrientation(spin.XPlus)
	default:
		return spin.FromOrientation(spin.XMinus)
	}
}
