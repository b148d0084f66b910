package nav

import "gonum.org/v1/gonum/spatial/r3"

// Filter is a one-dimensional recursive (Kalman-style) noise estimator:
// a random-walk state with running estimate and estimate covariance.
// It is stateful across calls and is never reset for the life of the
// engine.
type Filter struct {
	q float64 // process noise covariance
	r float64 // measurement noise covariance

	x      float64 // running estimate
	p      float64 // estimate covariance
	primed bool
}

// NewFilter returns a filter with the given process and measurement
// noise covariances. Higher q tracks measurements more aggressively;
// higher r trusts them less.
func NewFilter(q, r float64) *Filter {
	return &Filter{q: q, r: r}
}

// Update absorbs one raw sample and returns the denoised estimate.
func (f *Filter) Update(z float64) float64 {
	if !f.primed {
		f.x = z
		f.p = f.r
		f.primed = true
		return f.x
	}

	// Predict: random walk, uncertainty grows by q.
	f.p += f.q

	// Update.
	k := f.p / (f.p + f.r)
	f.x += k * (z - f.x)
	f.p *= 1 - k
	return f.x
}

// Estimate returns the current estimate without absorbing a sample.
func (f *Filter) Estimate() float64 {
	return f.x
}

// VecFilter denoises a 3-vector stream with one independent Filter per
// axis.
type VecFilter struct {
	x, y, z *Filter
}

func NewVecFilter(q, r float64) *VecFilter {
	return &VecFilter{
		x: NewFilter(q, r),
		y: NewFilter(q, r),
		z: NewFilter(q, r),
	}
}

// Update absorbs one raw vector sample and returns the denoised vector.
func (f *VecFilter) Update(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: f.x.Update(v.X),
		Y: f.y.Update(v.Y),
		Z: f.z.Update(v.Z),
	}
}
