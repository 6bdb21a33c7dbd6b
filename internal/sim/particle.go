package sim

import (
	"github.com/san-kum/spinlab/internal/geom"
	"github.com/san-kum/spinlab/internal/spin"
)

// MaxStages is the spin-history depth: the preparation plus up to two
// measurement results.
const MaxStages = 3

// Particle is a pooled entity. It is allocated once inside an arena
// and reused through Activate/Deactivate; it is never destroyed.
type Particle struct {
	pos  geom.Vec2
	path Path
	seg  int

	// stage is the travel leg the particle currently occupies:
	// 0 = source to first analyzer, 1 = first exit onward,
	// 2 = second exit onward (terminal).
	stage     int
	spins     [MaxStages]spin.State
	completed [MaxStages]bool
	lastUp    bool
	active    bool
}

// Activate clears all per-run fields, records the prepared spin as
// stage-0 history, and places the particle at the start of its path.
func (p *Particle) Activate(initial spin.State, path Path) {
	*p = Particle{}
	p.spins[0] = initial
	p.path = path
	if len(path) > 0 {
		p.pos = path[0]
	}
	p.active = true
}

// Deactivate returns the particle to its pool. Idempotent.
func (p *Particle) Deactivate() {
	p.active = false
}

// Advance moves the particle dt seconds along its path at the given
// speed. When the final waypoint is reached the unused time is
// returned with atEnd true, so the caller can resolve the transition
// and spend the remainder on the newly assigned path; time is never
// snapped to a frame boundary.
func (p *Particle) Advance(dt, speed float64) (leftover float64, atEnd bool) {
	remaining := speed * dt
	for p.seg < len(p.path)-1 {
		target := p.path[p.seg+1]
		d := p.pos.Dist(target)
		if remaining < d {
			p.pos = p.pos.Add(target.Sub(p.pos).Unit().Scale(remaining))
			return 0, false
		}
		p.pos = target
		remaining -= d
		p.seg++
	}
	if speed == 0 {
		return 0, true
	}
	return remaining / speed, true
}

// SetPath assigns a new path starting at its first waypoint. The
// particle position jumps there (paths begin at exit anchors after a
// measurement, or at the current position after a reconfiguration).
func (p *Particle) SetPath(path Path) {
	p.path = path
	p.seg = 0
	if len(path) > 0 {
		p.pos = path[0]
	}
}

func (p *Particle) Active() bool        { return p.active }
func (p *Particle) Position() geom.Vec2 { return p.pos }
func (p *Particle) Stage() int          { return p.stage }
func (p *Particle) LastOutcomeUp() bool { return p.lastUp }

// SpinAt returns the spin history entry for a stage: 0 is the
// preparation, k+1 the result of measurement k. The value is only
// meaningful once that stage has resolved.
func (p *Particle) SpinAt(stage int) spin.State {
	return p.spins[stage]
}

// MeasurementDone reports whether the measurement at the given stage
// has resolved.
func (p *Particle) MeasurementDone(stage int) bool {
	return p.completed[stage]
}
