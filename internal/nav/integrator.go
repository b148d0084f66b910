package nav

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// integrator accumulates the trapezoidal integral of a sampled vector
// signal against wall time. The first sample only primes the previous
// point; integration starts with the second.
type integrator struct {
	prev   r3.Vec
	prevAt time.Time
	sum    r3.Vec
	primed bool
}

// add absorbs one sample and returns the updated integral. Samples with
// non-increasing timestamps are absorbed without advancing the
// integral.
func (i *integrator) add(v r3.Vec, at time.Time) r3.Vec {
	if !i.primed {
		i.prev = v
		i.prevAt = at
		i.primed = true
		return i.sum
	}

	dt := at.Sub(i.prevAt).Seconds()
	if dt > 0 {
		i.sum = r3.Add(i.sum, r3.Scale(0.5*dt, r3.Add(i.prev, v)))
		i.prevAt = at
	}
	i.prev = v
	return i.sum
}

// set overrides the accumulated integral, for ground-truth corrections.
func (i *integrator) set(v r3.Vec) {
	i.sum = v
}

// value returns the current integral.
func (i *integrator) value() r3.Vec {
	return i.sum
}
