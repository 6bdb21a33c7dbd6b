package sim

import "errors"

// Precondition errors. These indicate programming mistakes, not
// recoverable runtime conditions, and are raised via panic.
var (
	// ErrPoolExhausted indicates an activation request with no free
	// particle slot.
	ErrPoolExhausted = errors.New("sim: no free particle slot")

	// ErrNegativeStep indicates a negative dt passed to Step.
	ErrNegativeStep = errors.New("sim: negative step duration")

	// ErrNilConfiguration indicates a missing experiment configuration.
	ErrNilConfiguration = errors.New("sim: nil experiment configuration")

	// ErrNilRand indicates a missing random source.
	ErrNilRand = errors.New("sim: nil random source")

	// ErrStageRange indicates an apparatus index outside the active
	// configuration.
	ErrStageRange = errors.New("sim: apparatus index out of range")
)
