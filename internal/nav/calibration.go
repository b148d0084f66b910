package nav

import (
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// noiseWindow is how many recent accelerometer magnitudes an
// accumulator keeps for reporting residual noise at finalization.
const noiseWindow = 512

// CalibrationAccumulator collects filtered samples from one IMU while
// the pod is stationary and, once the minimum sample count is reached,
// freezes that IMU's gravity vector and gyro bias. A completed
// accumulator is read-only for the remainder of the run.
type CalibrationAccumulator struct {
	minSamples int

	n          int
	gravitySum r3.Vec
	gyroSum    r3.Vec

	accelNorms []float64
	normIdx    int

	complete bool
	gravity  r3.Vec
	gyroBias r3.Vec
	noiseStd float64
}

func NewCalibrationAccumulator(minSamples int) *CalibrationAccumulator {
	return &CalibrationAccumulator{
		minSamples: minSamples,
		accelNorms: make([]float64, 0, noiseWindow),
	}
}

// Add absorbs one filtered accelerometer/gyro pair. Samples arriving
// after completion are ignored.
func (a *CalibrationAccumulator) Add(accel, gyro r3.Vec) {
	if a.complete {
		return
	}

	a.gravitySum = r3.Add(a.gravitySum, accel)
	a.gyroSum = r3.Add(a.gyroSum, gyro)
	a.n++

	if len(a.accelNorms) < noiseWindow {
		a.accelNorms = append(a.accelNorms, r3.Norm(accel))
	} else {
		a.accelNorms[a.normIdx] = r3.Norm(accel)
		a.normIdx = (a.normIdx + 1) % noiseWindow
	}

	if a.n >= a.minSamples {
		a.finalize()
	}
}

func (a *CalibrationAccumulator) finalize() {
	inv := 1 / float64(a.n)
	a.gravity = r3.Scale(inv, a.gravitySum)
	a.gyroBias = r3.Scale(inv, a.gyroSum)
	a.noiseStd = stat.StdDev(a.accelNorms, nil)
	a.complete = true
}

// Complete reports whether the minimum sample count has been reached
// and the estimates are frozen.
func (a *CalibrationAccumulator) Complete() bool {
	return a.complete
}

// Samples returns the number of samples absorbed so far.
func (a *CalibrationAccumulator) Samples() int {
	return a.n
}

// Gravity returns the frozen gravity vector. Only meaningful once
// Complete reports true.
func (a *CalibrationAccumulator) Gravity() r3.Vec {
	return a.gravity
}

// GyroBias returns the frozen gyro bias. Only meaningful once Complete
// reports true.
func (a *CalibrationAccumulator) GyroBias() r3.Vec {
	return a.gyroBias
}

// NoiseStd returns the standard deviation of the accelerometer
// magnitude over the tail of the calibration window, as a residual
// noise figure for logging.
func (a *CalibrationAccumulator) NoiseStd() float64 {
	return a.noiseStd
}
