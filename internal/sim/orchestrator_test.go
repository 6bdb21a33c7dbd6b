package sim

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/spinlab/internal/apparatus"
	"github.com/san-kum/spinlab/internal/experiment"
	"github.com/san-kum/spinlab/internal/geom"
	"github.com/san-kum/spinlab/internal/spin"
)

// fixedRand replays a scripted draw sequence, repeating the last
// value once exhausted.
type fixedRand struct {
	draws []float64
	next  int
}

func (r *fixedRand) Float64() float64 {
	if r.next < len(r.draws)-1 {
		r.next++
		return r.draws[r.next-1]
	}
	return r.draws[len(r.draws)-1]
}

type measurement struct {
	slot   Slot
	stage  int
	up     bool
	result spin.State
}

// recorder collects change notifications.
type recorder struct {
	measured []measurement
	absorbed []Slot
}

func (r *recorder) OnMeasured(slot Slot, stage int, up bool, result spin.State) {
	r.measured = append(r.measured, measurement{slot, stage, up, result})
}

func (r *recorder) OnAbsorbed(slot Slot) {
	r.absorbed = append(r.absorbed, slot)
}

func mustParse(s string) *experiment.Configuration {
	cfg, err := experiment.Parse(s)
	Expect(err).ToNot(HaveOccurred())
	return cfg
}

// stepUntilIdle runs the orchestrator until every particle has left
// the scene. It always steps at least once so a pending shot, which
// only activates inside Step, gets its run.
func stepUntilIdle(o *Orchestrator) {
	for i := 0; i < 10000; i++ {
		o.Step(0.05)
		if !o.pendingShot && o.ActiveCount() == 0 {
			break
		}
	}
	Expect(o.ActiveCount()).To(BeZero())
}

var _ = Describe("Orchestrator", func() {

	Describe("construction", func() {
		It("rejects a nil configuration", func() {
			_, err := New(nil, &fixedRand{draws: []float64{0}})
			Expect(err).To(MatchError(ErrNilConfiguration))
		})

		It("rejects a nil random source", func() {
			_, err := New(mustParse("Z"), nil)
			Expect(err).To(MatchError(ErrNilRand))
		})
	})

	Describe("single-shot lifecycle", func() {
		var (
			o   *Orchestrator
			rec *recorder
		)

		BeforeEach(func() {
			var err error
			o, err = New(mustParse("Z"), &fixedRand{draws: []float64{0}})
			Expect(err).ToNot(HaveOccurred())
			rec = &recorder{}
			o.AddObserver(rec)
		})

		It("activates a pending shot at the next step", func() {
			o.ShootSingleParticle()
			Expect(o.ActiveCount()).To(BeZero())

			o.Step(0.01)
			Expect(o.ActiveCount()).To(Equal(1))
		})

		It("measures each particle exactly once in a single-analyzer arrangement", func() {
			o.ShootSingleParticle()
			stepUntilIdle(o)

			Expect(rec.measured).To(HaveLen(1))
			Expect(rec.measured[0].stage).To(BeZero())
			up, down := o.Apparatus(0).Counts()
			Expect(up + down).To(Equal(1))
		})

		It("conserves leftover time across a transition boundary", func() {
			o.ShootSingleParticle()
			// 1s at speed 6 covers the 2.5-unit approach leg and then
			// 3.5 units of the exit path; Z+ on a Z analyzer is a
			// certain "up", so the particle leaves the top exit.
			o.Step(1.0)

			var pos geom.Vec2
			count := 0
			o.EachActive(func(slot Slot, p geom.Vec2) {
				pos = p
				count++
			})
			Expect(count).To(Equal(1))
			Expect(pos.X).To(BeNumerically("~", 4.0, 1e-9))
			Expect(pos.Y).To(BeNumerically("~", 0.25, 1e-9))
		})

		It("accepts a zero step as a paused frame", func() {
			o.ShootSingleParticle()
			o.Step(0.2) // mid-flight on the approach leg

			var before geom.Vec2
			o.EachActive(func(slot Slot, p geom.Vec2) { before = p })
			elapsed := o.Time()

			o.Step(0)

			var after geom.Vec2
			o.EachActive(func(slot Slot, p geom.Vec2) { after = p })
			Expect(after).To(Equal(before))
			Expect(o.Time()).To(Equal(elapsed))
			Expect(o.ActiveCount()).To(Equal(1))
			up, down := o.Apparatus(0).Counts()
			Expect(up + down).To(BeZero())
		})

		It("frees the slot once the particle leaves the scene", func() {
			o.ShootSingleParticle()
			stepUntilIdle(o)

			// The slot is reusable for the next shot.
			o.ShootSingleParticle()
			o.Step(0.01)
			Expect(o.ActiveCount()).To(Equal(1))
		})
	})

	Describe("three-analyzer routing", func() {

		It("runs exactly one second-stage branch per particle", func() {
			o, err := New(mustParse("ZXX"), rand.New(rand.NewSource(11)))
			Expect(err).ToNot(HaveOccurred())
			rec := &recorder{}
			o.AddObserver(rec)

			for i := 0; i < 20; i++ {
				o.ShootSingleParticle()
				stepUntilIdle(o)
			}

			perStage := map[int]int{}
			for _, m := range rec.measured {
				perStage[m.stage]++
			}
			Expect(perStage[0]).To(Equal(20))
			Expect(perStage[1]).To(Equal(20))

			up1, down1 := o.Apparatus(1).Counts()
			up2, down2 := o.Apparatus(2).Counts()
			Expect(up1 + down1 + up2 + down2).To(Equal(20))
		})

		It("routes a certain up outcome to apparatus 1 and measures at 0.5 there", func() {
			// Scenario: [Z, X, X], prepared Z+, every draw 0.0.
			o, err := New(mustParse("ZXX"), &fixedRand{draws: []float64{0}})
			Expect(err).ToNot(HaveOccurred())
			rec := &recorder{}
			o.AddObserver(rec)

			Expect(o.Apparatus(0).UpProbability(o.Preparation())).To(Equal(1.0))

			o.ShootSingleParticle()
			stepUntilIdle(o)

			Expect(rec.measured).To(HaveLen(2))
			Expect(rec.measured[0].stage).To(BeZero())
			Expect(rec.measured[0].up).To(BeTrue())

			// The up branch is the X-oriented apparatus at index 1,
			// which sees Z+ with probability one half.
			zPlus := spin.FromOrientation(spin.ZPlus)
			Expect(o.Apparatus(1).UpProbability(zPlus)).To(Equal(0.5))
			up, _ := o.Apparatus(1).Counts()
			Expect(up).To(Equal(1))

			_, down := o.Apparatus(2).Counts()
			Expect(down).To(BeZero())
		})

		It("maps an X-analyzer down outcome to the X- state", func() {
			o, err := New(mustParse("X"), &fixedRand{draws: []float64{0.99}})
			Expect(err).ToNot(HaveOccurred())
			rec := &recorder{}
			o.AddObserver(rec)

			// Z+ against the X axis: p = 0.5, draw 0.99 resolves down.
			o.ShootSingleParticle()
			stepUntilIdle(o)

			Expect(rec.measured).To(HaveLen(1))
			Expect(rec.measured[0].up).To(BeFalse())
			orient, ok := rec.measured[0].result.Discrete()
			Expect(ok).To(BeTrue())
			Expect(orient).To(Equal(spin.XMinus))
			Expect(rec.measured[0].result.Vector()).To(Equal(geom.Vec2{X: -1, Y: 0}))
		})
	})

	Describe("blocking", func() {

		It("removes an up particle entering a branch that blocks up, before measuring", func() {
			o, err := New(mustParse("ZXX"), &fixedRand{draws: []float64{0}})
			Expect(err).ToNot(HaveOccurred())
			rec := &recorder{}
			o.AddObserver(rec)
			o.SetBlockingMode(1, apparatus.BlockUpExit)

			o.ShootSingleParticle()
			stepUntilIdle(o)

			Expect(rec.measured).To(HaveLen(1), "only the first stage measures")
			Expect(rec.absorbed).To(HaveLen(1))
			up, down := o.Apparatus(1).Counts()
			Expect(up).To(BeZero())
			Expect(down).To(BeZero())
		})

		It("removes a down particle entering a branch that blocks down", func() {
			o, err := New(mustParse("ZXX"), &fixedRand{draws: []float64{0.5}})
			Expect(err).ToNot(HaveOccurred())
			rec := &recorder{}
			o.AddObserver(rec)
			o.SetPreparation(spin.FromOrientation(spin.ZMinus))
			o.SetBlockingMode(2, apparatus.BlockDownExit)

			// Z- on a Z analyzer is a certain "down".
			o.ShootSingleParticle()
			stepUntilIdle(o)

			Expect(rec.absorbed).To(HaveLen(1))
			up, down := o.Apparatus(2).Counts()
			Expect(up + down).To(BeZero())
		})

		It("does not touch the opposite branch", func() {
			o, err := New(mustParse("ZXX"), &fixedRand{draws: []float64{0}})
			Expect(err).ToNot(HaveOccurred())
			rec := &recorder{}
			o.AddObserver(rec)
			o.SetBlockingMode(2, apparatus.BlockDownExit)

			// Certain up: travels to apparatus 1, unaffected.
			o.ShootSingleParticle()
			stepUntilIdle(o)

			Expect(rec.absorbed).To(BeEmpty())
			Expect(rec.measured).To(HaveLen(2))
		})
	})

	Describe("continuous beam", func() {

		It("activates at the configured average rate", func() {
			o, err := NewSized(mustParse("Z"), rand.New(rand.NewSource(3)), 4, 64)
			Expect(err).ToNot(HaveOccurred())
			o.SetBeam(true)
			o.SetBeamRate(10)

			for i := 0; i < 10; i++ {
				o.Step(0.1)
			}

			// One second at 10/s; nothing has reached the terminal yet.
			Expect(o.ActiveCount()).To(Equal(10))
		})

		It("stays unbiased under irregular step sizes", func() {
			o, err := NewSized(mustParse("Z"), rand.New(rand.NewSource(3)), 4, 2048)
			Expect(err).ToNot(HaveOccurred())
			rec := &recorder{}
			o.AddObserver(rec)
			o.SetBeam(true)
			o.SetBeamRate(40)

			steps := []float64{0.016, 0.031, 0.009, 0.024}
			elapsed := 0.0
			for i := 0; elapsed < 20.0; i++ {
				dt := steps[i%len(steps)]
				o.Step(dt)
				elapsed += dt
			}
			o.SetBeam(false)
			stepUntilIdle(o)

			perStage := map[int]int{}
			for _, m := range rec.measured {
				perStage[m.stage]++
			}
			Expect(float64(perStage[0])).To(BeNumerically("~", 40*elapsed, 1.0))
		})

		It("panics when the beam pool is exhausted", func() {
			o, err := NewSized(mustParse("Z"), rand.New(rand.NewSource(3)), 4, 2)
			Expect(err).ToNot(HaveOccurred())
			o.SetBeam(true)
			o.SetBeamRate(100)

			Expect(func() {
				for i := 0; i < 10; i++ {
					o.Step(0.05)
				}
			}).To(PanicWith(MatchError(ErrPoolExhausted)))
		})
	})

	Describe("determinism", func() {

		run := func(seed int64) []geom.Vec2 {
			o, err := New(mustParse("ZXZ"), rand.New(rand.NewSource(seed)))
			Expect(err).ToNot(HaveOccurred())
			o.SetBeam(true)
			o.SetBeamRate(15)

			var trace []geom.Vec2
			for i := 0; i < 400; i++ {
				o.Step(0.016)
				o.EachActive(func(slot Slot, pos geom.Vec2) {
					trace = append(trace, pos)
				})
			}
			return trace
		}

		It("reproduces outcome and position sequences for identical seeds", func() {
			Expect(run(99)).To(Equal(run(99)))
		})
	})

	Describe("reset", func() {

		It("clears particles, counters, and emission carry", func() {
			o, err := New(mustParse("ZXX"), rand.New(rand.NewSource(5)))
			Expect(err).ToNot(HaveOccurred())
			o.SetBeam(true)
			for i := 0; i < 100; i++ {
				o.Step(0.05)
			}
			Expect(o.ActiveCount()).ToNot(BeZero())

			o.Reset()

			Expect(o.ActiveCount()).To(BeZero())
			Expect(o.Time()).To(BeZero())
			up, down := o.Apparatus(0).Counts()
			Expect(up + down).To(BeZero())
			Expect(o.Apparatus(0).UpRate()).To(BeZero())
			Expect(o.BeamOn()).To(BeTrue(), "source mode persists across reset")
		})
	})

	Describe("reconfiguration", func() {

		It("recomputes in-flight paths against the current stage", func() {
			o, err := New(mustParse("ZXX"), &fixedRand{draws: []float64{0}})
			Expect(err).ToNot(HaveOccurred())
			rec := &recorder{}
			o.AddObserver(rec)

			o.ShootSingleParticle()
			// Past the first measurement, en route to apparatus 1.
			for o.Time() < 0.6 {
				o.Step(0.05)
			}
			Expect(rec.measured).To(HaveLen(1))

			// Shrink to a single analyzer: the in-flight particle is
			// already measured, so its leg becomes terminal.
			Expect(o.Reconfigure(mustParse("Z"))).To(Succeed())
			stepUntilIdle(o)

			Expect(rec.measured).To(HaveLen(1), "no second measurement after shrinking")
		})

		It("routes unmeasured particles to the new first analyzer", func() {
			o, err := New(mustParse("Z"), &fixedRand{draws: []float64{0}})
			Expect(err).ToNot(HaveOccurred())
			rec := &recorder{}
			o.AddObserver(rec)

			o.ShootSingleParticle()
			o.Step(0.1) // still on the approach leg

			Expect(o.Reconfigure(mustParse("XZZ"))).To(Succeed())
			stepUntilIdle(o)

			// Two measurements under the new three-stage arrangement.
			Expect(rec.measured).To(HaveLen(2))
		})

		It("resets counters and keeps blocking modes", func() {
			o, err := New(mustParse("ZXX"), rand.New(rand.NewSource(5)))
			Expect(err).ToNot(HaveOccurred())
			o.SetBlockingMode(1, apparatus.BlockUpExit)
			o.ShootSingleParticle()
			stepUntilIdle(o)

			Expect(o.Reconfigure(mustParse("ZZZ"))).To(Succeed())

			up, down := o.Apparatus(0).Counts()
			Expect(up + down).To(BeZero())
			Expect(o.Apparatus(1).Blocking()).To(Equal(apparatus.BlockUpExit))
		})

		It("rejects a nil configuration", func() {
			o, err := New(mustParse("Z"), rand.New(rand.NewSource(5)))
			Expect(err).ToNot(HaveOccurred())
			Expect(o.Reconfigure(nil)).To(MatchError(ErrNilConfiguration))
		})
	})

	Describe("preconditions", func() {

		It("panics on a negative step", func() {
			o, err := New(mustParse("Z"), rand.New(rand.NewSource(5)))
			Expect(err).ToNot(HaveOccurred())
			Expect(func() { o.Step(-0.01) }).To(PanicWith(MatchError(ErrNegativeStep)))
		})

		It("panics when the single-shot pool is exhausted", func() {
			o, err := NewSized(mustParse("Z"), rand.New(rand.NewSource(5)), 1, 1)
			Expect(err).ToNot(HaveOccurred())

			o.ShootSingleParticle()
			o.Step(0.01)
			o.ShootSingleParticle()
			Expect(func() { o.Step(0.01) }).To(PanicWith(MatchError(ErrPoolExhausted)))
		})

		It("panics on an out-of-range apparatus index", func() {
			o, err := New(mustParse("Z"), rand.New(rand.NewSource(5)))
			Expect(err).ToNot(HaveOccurred())
			Expect(func() { o.SetBlockingMode(1, apparatus.BlockUpExit) }).To(PanicWith(MatchError(ErrStageRange)))
		})
	})
})
