package sim

import (
	"github.com/san-kum/spinlab/internal/apparatus"
	"github.com/san-kum/spinlab/internal/experiment"
	"github.com/san-kum/spinlab/internal/geom"
	"github.com/san-kum/spinlab/internal/rate"
	"github.com/san-kum/spinlab/internal/spin"
)

// Pool and motion defaults.
const (
	DefaultSingleCapacity = 16
	DefaultBeamCapacity   = 512
	DefaultParticleSpeed  = 6.0
	DefaultBeamRate       = 10.0
)

// World layout. The source sits left of the first analyzer; in a
// three-stage arrangement the first analyzer's exits feed one
// second-stage analyzer each, offset vertically.
const (
	sourceX          = -3.0
	firstStageX      = 0.0
	secondStageX     = 4.0
	branchSpread     = 1.5
	terminalDistance = 12.0
)

// maxApparatuses is the session-lifetime apparatus arena size; the
// active configuration decides how many are in use.
const maxApparatuses = 3

// Orchestrator owns the particle arenas, the apparatus arena, and the
// continuous-emission scheduler, and drives every particle through
// the measurement stage machine.
type Orchestrator struct {
	cfg  *experiment.Configuration
	apps [maxApparatuses]*apparatus.Apparatus

	single *arena
	beam   *arena

	emitter  rate.Emitter
	rng      Rand
	speed    float64
	prepared spin.State

	beamOn      bool
	beamRate    float64
	pendingShot bool

	observers []Observer
	elapsed   float64
}

// New builds an orchestrator with default pool capacities.
func New(cfg *experiment.Configuration, rng Rand) (*Orchestrator, error) {
	return NewSized(cfg, rng, DefaultSingleCapacity, DefaultBeamCapacity)
}

// NewSized builds an orchestrator with explicit pool capacities, for
// callers that know their emission budget.
func NewSized(cfg *experiment.Configuration, rng Rand, singleCap, beamCap int) (*Orchestrator, error) {
	if cfg == nil {
		return nil, ErrNilConfiguration
	}
	if rng == nil {
		return nil, ErrNilRand
	}

	o := &Orchestrator{
		cfg:      cfg,
		single:   newArena(SourceSingle, singleCap),
		beam:     newArena(SourceBeam, beamCap),
		rng:      rng,
		speed:    DefaultParticleSpeed,
		prepared: spin.FromOrientation(spin.ZPlus),
		beamRate: DefaultBeamRate,
	}
	for i := range o.apps {
		o.apps[i] = apparatus.New(true)
	}
	o.apps[0].SetPosition(geom.Vec2{X: firstStageX})
	o.apps[1].SetPosition(geom.Vec2{X: secondStageX, Y: branchSpread})
	o.apps[2].SetPosition(geom.Vec2{X: secondStageX, Y: -branchSpread})
	o.applyOrientations()
	return o, nil
}

func (o *Orchestrator) applyOrientations() {
	for i := 0; i < o.cfg.Len(); i++ {
		o.apps[i].SetOrientation(o.cfg.At(i).ZOriented)
	}
	for i := range o.apps {
		o.apps[i].SetEnabled(i < o.cfg.Len())
	}
}

// Step advances the whole simulation by dt seconds. Per-tick order:
// pending single-shot activation, beam emission, particle advancement
// in slot order, then the apparatus rate windows.
func (o *Orchestrator) Step(dt float64) {
	if dt < 0 {
		panic(ErrNegativeStep)
	}

	if o.pendingShot {
		o.pendingShot = false
		o.activate(o.single)
	}
	if o.beamOn {
		n := o.emitter.Tick(o.beamRate, dt)
		for i := 0; i < n; i++ {
			o.activate(o.beam)
		}
	}

	o.advanceArena(o.single, dt)
	o.advanceArena(o.beam, dt)

	for i := 0; i < o.cfg.Len(); i++ {
		o.apps[i].Step(dt)
	}
	o.elapsed += dt
}

func (o *Orchestrator) activate(a *arena) {
	idx := a.acquire()
	a.parts[idx].Activate(o.prepared, Path{
		{X: sourceX, Y: 0},
		o.apps[0].Entrance(),
	})
}

func (o *Orchestrator) advanceArena(a *arena, dt float64) {
	for i := range a.parts {
		p := &a.parts[i]
		if !p.active {
			continue
		}
		o.advanceParticle(Slot{Source: a.source, Index: i}, p, dt)
	}
}

// advanceParticle spends the full dt, carrying leftover time across
// transition boundaries onto newly assigned paths.
func (o *Orchestrator) advanceParticle(slot Slot, p *Particle, dt float64) {
	remaining := dt
	for p.active {
		leftover, atEnd := p.Advance(remaining, o.speed)
		if !atEnd {
			return
		}
		o.resolve(slot, p)
		if leftover <= 0 {
			return
		}
		remaining = leftover
	}
}

// resolve runs the stage-transition machine for a particle that has
// reached the end of its path.
func (o *Orchestrator) resolve(slot Slot, p *Particle) {
	switch {
	case p.stage == 0:
		// Entering the first analyzer; nothing measured yet, so no
		// blocking check applies.
		o.measure(slot, p, 0, 0)
	case p.stage == 1 && !o.cfg.Single():
		appIdx := o.branchIndex(p.lastUp)
		if branchBlocked(o.apps[appIdx].Blocking(), p.lastUp) {
			p.Deactivate()
			for _, obs := range o.observers {
				obs.OnAbsorbed(slot)
			}
			return
		}
		o.measure(slot, p, 1, appIdx)
	default:
		// End of a terminal leg; the particle has left the scene and
		// its slot frees up.
		p.Deactivate()
	}
}

// branchBlocked matches an apparatus blocking mode against the
// arriving particle's most recent measured direction.
func branchBlocked(m apparatus.BlockingMode, lastUp bool) bool {
	return (m == apparatus.BlockUpExit && lastUp) ||
		(m == apparatus.BlockDownExit && !lastUp)
}

// branchIndex maps a first-stage outcome to its second-stage
// apparatus: up exits feed apparatus 1, down exits apparatus 2.
func (o *Orchestrator) branchIndex(up bool) int {
	if up {
		return 1
	}
	return 2
}

func (o *Orchestrator) measure(slot Slot, p *Particle, stage, appIdx int) {
	if p.completed[stage] {
		return
	}
	app := o.apps[appIdx]

	incoming := p.spins[stage]
	prob := app.UpProbability(incoming)
	up := o.rng.Float64() < prob
	app.RecordOutcome(up)

	result := app.MeasuredState(up)
	p.completed[stage] = true
	p.lastUp = up
	p.spins[stage+1] = result
	p.stage = stage + 1
	p.SetPath(o.exitPath(app, up, stage))

	for _, obs := range o.observers {
		obs.OnMeasured(slot, stage, up, result)
	}
}

// exitPath builds the path leaving an apparatus after a measurement:
// from the matching exit anchor to the next analyzer's entrance, or
// to a far terminal point after the last measurement.
func (o *Orchestrator) exitPath(app *apparatus.Apparatus, up bool, stage int) Path {
	exit := app.Exit(up)
	if stage == 0 && !o.cfg.Single() {
		next := o.apps[o.branchIndex(up)]
		return Path{exit, next.Entrance()}
	}
	return Path{exit, {X: exit.X + terminalDistance, Y: exit.Y}}
}

// ShootSingleParticle requests one single-shot particle; it activates
// at the start of the next Step.
func (o *Orchestrator) ShootSingleParticle() {
	o.pendingShot = true
}

// SetBlockingMode configures branch blocking on an apparatus of the
// active arrangement.
func (o *Orchestrator) SetBlockingMode(idx int, m apparatus.BlockingMode) {
	if idx < 0 || idx >= o.cfg.Len() {
		panic(ErrStageRange)
	}
	o.apps[idx].SetBlocking(m)
}

// Reset deactivates every particle and clears all counters and the
// emission carry. Arrangement, blocking modes, preparation, and beam
// settings persist.
func (o *Orchestrator) Reset() {
	o.single.deactivateAll()
	o.beam.deactivateAll()
	for i := range o.apps {
		o.apps[i].Reset()
	}
	o.emitter.Reset()
	o.pendingShot = false
	o.elapsed = 0
}

// Reconfigure replaces the apparatus arrangement. The session
// apparatuses mutate in place, counters reset, and every in-flight
// particle gets its path recomputed from its current position against
// its current stage.
func (o *Orchestrator) Reconfigure(cfg *experiment.Configuration) error {
	if cfg == nil {
		return ErrNilConfiguration
	}
	o.cfg = cfg
	o.applyOrientations()
	for i := range o.apps {
		o.apps[i].Reset()
	}
	o.recomputePaths(o.single)
	o.recomputePaths(o.beam)
	return nil
}

func (o *Orchestrator) recomputePaths(a *arena) {
	for i := range a.parts {
		p := &a.parts[i]
		if !p.active {
			continue
		}
		pos := p.pos
		switch {
		case p.stage == 0:
			p.SetPath(Path{pos, o.apps[0].Entrance()})
		case p.stage == 1 && !o.cfg.Single():
			p.SetPath(Path{pos, o.apps[o.branchIndex(p.lastUp)].Entrance()})
		default:
			p.SetPath(Path{pos, {X: pos.X + terminalDistance, Y: pos.Y}})
		}
	}
}

func (o *Orchestrator) AddObserver(obs Observer) {
	o.observers = append(o.observers, obs)
}

func (o *Orchestrator) Configuration() *experiment.Configuration {
	return o.cfg
}

// Apparatus exposes an apparatus of the active arrangement for
// read access and blocking/orientation control.
func (o *Orchestrator) Apparatus(idx int) *apparatus.Apparatus {
	if idx < 0 || idx >= o.cfg.Len() {
		panic(ErrStageRange)
	}
	return o.apps[idx]
}

// EachActive visits every active particle in deterministic slot
// order, for rendering.
func (o *Orchestrator) EachActive(fn func(slot Slot, pos geom.Vec2)) {
	for _, a := range []*arena{o.single, o.beam} {
		for i := range a.parts {
			if a.parts[i].active {
				fn(Slot{Source: a.source, Index: i}, a.parts[i].pos)
			}
		}
	}
}

func (o *Orchestrator) ActiveCount() int {
	return o.single.activeCount() + o.beam.activeCount()
}

func (o *Orchestrator) SetPreparation(s spin.State) { o.prepared = s }
func (o *Orchestrator) Preparation() spin.State     { return o.prepared }

func (o *Orchestrator) SetBeam(on bool) { o.beamOn = on }
func (o *Orchestrator) BeamOn() bool    { return o.beamOn }

func (o *Orchestrator) SetBeamRate(r float64) {
	if r < 0 {
		r = 0
	}
	o.beamRate = r
}
func (o *Orchestrator) BeamRate() float64 { return o.beamRate }

func (o *Orchestrator) SourcePosition() geom.Vec2 {
	return geom.Vec2{X: sourceX, Y: 0}
}

// Time is the total simulated time since the last reset.
func (o *Orchestrator) Time() float64 { return o.elapsed }
