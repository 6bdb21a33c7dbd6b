package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/spinlab/internal/geom"
	"github.com/san-kum/spinlab/internal/spin"
)

var _ = Describe("Particle", func() {

	var p *Particle

	BeforeEach(func() {
		p = &Particle{}
		p.Activate(spin.FromOrientation(spin.XPlus), Path{{X: 0, Y: 0}, {X: 3, Y: 4}})
	})

	It("starts at the first waypoint with its preparation recorded", func() {
		Expect(p.Active()).To(BeTrue())
		Expect(p.Position()).To(Equal(geom.Vec2{}))
		Expect(p.Stage()).To(BeZero())
		orient, ok := p.SpinAt(0).Discrete()
		Expect(ok).To(BeTrue())
		Expect(orient).To(Equal(spin.XPlus))
		Expect(p.MeasurementDone(0)).To(BeFalse())
	})

	It("moves at constant speed along the segment", func() {
		leftover, atEnd := p.Advance(1.0, 2.5)
		Expect(atEnd).To(BeFalse())
		Expect(leftover).To(BeZero())
		// Half of the 5-unit segment.
		Expect(p.Position().X).To(BeNumerically("~", 1.5, 1e-9))
		Expect(p.Position().Y).To(BeNumerically("~", 2.0, 1e-9))
	})

	It("returns leftover time when the path ends mid-step", func() {
		leftover, atEnd := p.Advance(2.0, 4.0)
		Expect(atEnd).To(BeTrue())
		// 8 units of travel against a 5-unit path.
		Expect(leftover).To(BeNumerically("~", 0.75, 1e-9))
		Expect(p.Position()).To(Equal(geom.Vec2{X: 3, Y: 4}))
	})

	It("walks multi-segment paths in order", func() {
		p.SetPath(Path{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}})

		_, atEnd := p.Advance(1.5, 2.0)
		Expect(atEnd).To(BeFalse())
		Expect(p.Position()).To(Equal(geom.Vec2{X: 2, Y: 1}))

		leftover, atEnd := p.Advance(1.0, 2.0)
		Expect(atEnd).To(BeTrue())
		Expect(leftover).To(BeNumerically("~", 0.5, 1e-9))
	})

	It("clears per-run state on reactivation", func() {
		p.Advance(2.0, 4.0)
		p.Deactivate()

		p.Activate(spin.FromOrientation(spin.ZMinus), Path{{X: 1, Y: 1}, {X: 2, Y: 1}})

		Expect(p.Active()).To(BeTrue())
		Expect(p.Position()).To(Equal(geom.Vec2{X: 1, Y: 1}))
		Expect(p.Stage()).To(BeZero())
		Expect(p.MeasurementDone(0)).To(BeFalse())
		orient, _ := p.SpinAt(0).Discrete()
		Expect(orient).To(Equal(spin.ZMinus))
	})

	It("deactivates idempotently", func() {
		p.Deactivate()
		p.Deactivate()
		Expect(p.Active()).To(BeFalse())
	})
})
