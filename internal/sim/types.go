package sim

import (
	"fmt"

	"github.com/san-kum/spinlab/internal/geom"
	"github.com/san-kum/spinlab/internal/spin"
)

// Rand is the injectable uniform random source used for measurement
// draws. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Source identifies which particle population a slot belongs to.
type Source int

const (
	SourceSingle Source = iota
	SourceBeam
)

func (s Source) String() string {
	switch s {
	case SourceSingle:
		return "single"
	case SourceBeam:
		return "beam"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Slot is a stable particle identity: arena plus index. External
// consumers (sprites, counters) key off slots, which survive
// particle reuse.
type Slot struct {
	Source Source
	Index  int
}

// Observer receives change notifications for view synchronization.
type Observer interface {
	// OnMeasured fires when a particle's measurement at the given
	// stage resolves.
	OnMeasured(slot Slot, stage int, up bool, result spin.State)

	// OnAbsorbed fires when a particle is removed by a blocked branch.
	OnAbsorbed(slot Slot)
}

// Path is the ordered waypoint list a particle follows.
type Path []geom.Vec2
