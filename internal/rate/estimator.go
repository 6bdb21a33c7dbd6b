// Package rate provides the shared event-rate utilities of the
// simulation core: a trailing-window rate estimator and the fractional
// accumulator that keeps continuous particle emission unbiased across
// variable step sizes.
package rate

import "errors"

var (
	// ErrWindow indicates estimator durations that are non-positive or
	// a window shorter than a bucket.
	ErrWindow = errors.New("rate: window must be positive and at least one bucket long")

	// ErrNegativeStep indicates a negative dt passed to Step or Tick.
	ErrNegativeStep = errors.New("rate: negative step duration")
)

type bucket struct {
	duration float64
	count    int
}

// Estimator publishes a trailing average event rate. Events are
// collected into fixed-duration buckets; the published rate is the
// total count over total duration of the most recent buckets spanning
// at least the window. The bucket that crosses the window boundary is
// included in full, never pro-rated.
type Estimator struct {
	bucketDuration float64
	windowDuration float64

	elapsed float64 // time accumulated in the open bucket
	count   int     // events recorded in the open bucket
	history []bucket
	rate    float64
}

func NewEstimator(bucketDuration, windowDuration float64) (*Estimator, error) {
	if bucketDuration <= 0 || windowDuration < bucketDuration {
		return nil, ErrWindow
	}
	return &Estimator{
		bucketDuration: bucketDuration,
		windowDuration: windowDuration,
	}, nil
}

// RecordEvent counts one event into the in-progress bucket.
func (e *Estimator) RecordEvent() {
	e.count++
}

// Step advances the estimator clock. When the open bucket reaches the
// bucket duration it is closed into history with its actual elapsed
// time, and the published rate is recomputed over the trailing window.
func (e *Estimator) Step(dt float64) {
	if dt < 0 {
		panic(ErrNegativeStep)
	}
	e.elapsed += dt
	if e.elapsed < e.bucketDuration {
		return
	}
	e.history = append(e.history, bucket{duration: e.elapsed, count: e.count})
	e.elapsed = 0
	e.count = 0
	e.recompute()
}

func (e *Estimator) recompute() {
	var duration float64
	var events int
	keep := len(e.history)
	for i := len(e.history) - 1; i >= 0; i-- {
		duration += e.history[i].duration
		events += e.history[i].count
		keep = i
		if duration >= e.windowDuration {
			break
		}
	}
	// Older buckets can never re-enter the window.
	if keep > 0 {
		e.history = append(e.history[:0], e.history[keep:]...)
	}
	if duration == 0 {
		e.rate = 0
		return
	}
	e.rate = float64(events) / duration
}

// Rate returns the most recently published rate in events per second.
// Before any bucket has closed it is 0.
func (e *Estimator) Rate() float64 {
	return e.rate
}

// Reset discards all history and publishes 0.
func (e *Estimator) Reset() {
	e.history = e.history[:0]
	e.elapsed = 0
	e.count = 0
	e.rate = 0
}
