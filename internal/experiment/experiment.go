// Package experiment defines the selectable apparatus arrangements of
// the teaching tool: a single analyzer, or a first analyzer whose two
// exits feed one second-stage analyzer each.
package experiment

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStageCount indicates an arrangement that is neither one nor
// three stages.
var ErrStageCount = errors.New("experiment: arrangement must have exactly 1 or 3 stages")

// StageSpec describes one analyzer of an arrangement.
type StageSpec struct {
	ZOriented bool
}

// Configuration is an ordered, immutable apparatus arrangement.
// Three-stage arrangements are laid out as stage 0 feeding stage 1
// (up exit) and stage 2 (down exit).
type Configuration struct {
	stages []StageSpec
}

func New(stages ...StageSpec) (*Configuration, error) {
	if len(stages) != 1 && len(stages) != 3 {
		return nil, fmt.Errorf("%w: got %d", ErrStageCount, len(stages))
	}
	c := &Configuration{stages: make([]StageSpec, len(stages))}
	copy(c.stages, stages)
	return c, nil
}

// Parse reads an arrangement string such as "Z", "X", "ZXX", or
// "XZZ"; one letter per stage, case-insensitive.
func Parse(s string) (*Configuration, error) {
	s = strings.TrimSpace(s)
	stages := make([]StageSpec, 0, len(s))
	for _, r := range strings.ToUpper(s) {
		switch r {
		case 'Z':
			stages = append(stages, StageSpec{ZOriented: true})
		case 'X':
			stages = append(stages, StageSpec{ZOriented: false})
		default:
			return nil, fmt.Errorf("experiment: unknown stage orientation %q", string(r))
		}
	}
	return New(stages...)
}

// Single reports whether the arrangement has only one analyzer.
func (c *Configuration) Single() bool {
	return len(c.stages) == 1
}

func (c *Configuration) Len() int {
	return len(c.stages)
}

func (c *Configuration) At(i int) StageSpec {
	return c.stages[i]
}

func (c *Configuration) String() string {
	var b strings.Builder
	for _, s := range c.stages {
		if s.ZOriented {
			b.WriteByte('Z')
		} else {
			b.WriteByte('X')
		}
	}
	return b.String()
}
