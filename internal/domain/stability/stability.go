// Package stability folds a raw sample sequence into discrete stable readings.
//
// A reading is stable once incoming samples stay within tolerance of a running
// reference value for the full dwell window. Transient mechanical noise (a
// truck settling on the deck, wind load) moves the reference and restarts the
// window instead of producing a reading. Time is always taken from the sample
// itself, never from the wall clock, so the detector is fully deterministic.
package stability

import (
	"math"

	"github.com/scalehouse/weighbridge/internal/domain/model"
)

// Default detection parameters.
const (
	defaultToleranceKg = 20.0
	defaultDwell       = 2000 // milliseconds
)

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithTolerance sets the maximum deviation, in kilograms, a sample may show
// against the reference without restarting the dwell window.
func WithTolerance(kg float64) Option {
	return func(d *Detector) {
		if kg > 0 {
			d.tolerance = kg
		}
	}
}

// WithDwellMillis sets the dwell window length in milliseconds.
func WithDwellMillis(ms int64) Option {
	return func(d *Detector) {
		if ms > 0 {
			d.dwellMillis = ms
		}
	}
}

// Detector tracks the settling state of the scale. It is a pure fold over the
// sample sequence: not safe for concurrent use, and callers own any locking.
type Detector struct {
	tolerance   float64
	dwellMillis int64

	reference   float64
	refSince    model.WeightSample
	hasRef      bool
	settled     bool // current episode already produced a reading
	last        model.StableReading
	hasReading  bool
}

// New creates a Detector with the given options.
func New(opts ...Option) *Detector {
	d := &Detector{
		tolerance:   defaultToleranceKg,
		dwellMillis: defaultDwell,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Observe feeds one raw sample through the detector. It returns a
// StableReading and true exactly once per settling episode: on the first
// sample that completes the dwell window. Further in-tolerance samples extend
// the episode without re-emitting; an out-of-tolerance sample becomes the new
// reference and restarts the window.
func (d *Detector) Observe(s model.WeightSample) (model.StableReading, bool) {
	if !d.hasRef || math.Abs(s.Value-d.reference) > d.tolerance {
		d.reference = s.Value
		d.refSince = s
		d.hasRef = true
		d.settled = false
		return model.StableReading{}, false
	}

	if d.settled {
		return model.StableReading{}, false
	}

	elapsed := s.ObservedAt.Sub(d.refSince.ObservedAt).Milliseconds()
	if elapsed < d.dwellMillis {
		return model.StableReading{}, false
	}

	d.settled = true
	d.last = model.StableReading{Value: s.Value, SettledAt: s.ObservedAt}
	d.hasReading = true
	return d.last, true
}

// Latest returns the most recent stable reading, if any has been emitted.
func (d *Detector) Latest() (model.StableReading, bool) {
	return d.last, d.hasReading
}

// Reset clears all detector state. Used when the scale link is reopened so a
// stale reading from a previous connection cannot be captured.
func (d *Detector) Reset() {
	*d = Detector{tolerance: d.tolerance, dwellMillis: d.dwellMillis}
}
