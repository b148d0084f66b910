package nav

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestIntegrator_FirstSamplePrimes(t *testing.T) {
	var i integrator
	got := i.add(r3.Vec{X: 5}, time.Unix(0, 0))
	if got != (r3.Vec{}) {
		t.Fatalf("integral=%+v want zero after priming sample", got)
	}
}

// The trapezoid rule is exact for linear signals: integrating v(t)=t
// over [0,1] must give exactly 0.5.
func TestIntegrator_ExactForLinearSignal(t *testing.T) {
	var i integrator
	base := time.Unix(0, 0)
	var got r3.Vec
	for step := 0; step <= 100; step++ {
		at := base.Add(time.Duration(step) * 10 * time.Millisecond)
		v := at.Sub(base).Seconds()
		got = i.add(r3.Vec{X: v}, at)
	}
	if math.Abs(got.X-0.5) > 1e-12 {
		t.Fatalf("integral=%v want 0.5", got.X)
	}
}

func TestIntegrator_ConstantSignal(t *testing.T) {
	var i integrator
	base := time.Unix(0, 0)
	var got r3.Vec
	for step := 0; step <= 1000; step++ {
		got = i.add(r3.Vec{Y: 2}, base.Add(time.Duration(step)*time.Millisecond))
	}
	if math.Abs(got.Y-2.0) > 1e-9 {
		t.Fatalf("integral=%v want 2.0", got.Y)
	}
}

func TestIntegrator_IgnoresNonIncreasingTimestamps(t *testing.T) {
	var i integrator
	base := time.Unix(0, 0)
	i.add(r3.Vec{X: 1}, base)
	i.add(r3.Vec{X: 1}, base.Add(time.Second))
	before := i.value()

	i.add(r3.Vec{X: 100}, base.Add(time.Second)) // same timestamp
	i.add(r3.Vec{X: 100}, base)                  // going backwards
	if got := i.value(); got != before {
		t.Fatalf("integral moved on non-increasing timestamps: %+v -> %+v", before, got)
	}
}

func TestIntegrator_SetOverridesSum(t *testing.T) {
	var i integrator
	base := time.Unix(0, 0)
	i.add(r3.Vec{X: 1}, base)
	i.add(r3.Vec{X: 1}, base.Add(time.Second))
	i.set(r3.Vec{X: 42})
	if got := i.value(); got.X != 42 {
		t.Fatalf("value=%v want 42", got.X)
	}
	// Integration continues from the corrected value.
	got := i.add(r3.Vec{X: 1}, base.Add(2*time.Second))
	if math.Abs(got.X-43) > 1e-12 {
		t.Fatalf("value=%v want 43", got.X)
	}
}
