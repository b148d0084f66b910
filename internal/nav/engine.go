// Package nav fuses raw IMU, proximity, and stripe-counter readings
// into the pod's trusted kinematic estimate.
//
// The engine starts in a calibration phase that averages a bounded
// window of stationary samples into per-IMU gravity and gyro-bias
// estimates. Once calibrated it integrates denoised angular rates into
// an orientation quaternion and denoised, gravity-compensated
// accelerations into velocity and displacement, with proximity and
// stripe-counter corrections damping integration drift.
package nav

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"podctl/internal/pod"
	"podctl/internal/rendezvous"
)

const (
	// EmergencyDeceleration is the fixed deceleration (m/s^2) assumed
	// when computing the emergency braking distance.
	EmergencyDeceleration = 24

	// MinCalibrationSamples is the default number of stationary samples
	// each IMU must contribute before its bias estimates are trusted.
	MinCalibrationSamples = 200000
)

// ErrCalibrationPending is returned by FinishCalibration while the
// calibration window has not yet been filled. The call is a no-op and
// may be retried.
var ErrCalibrationPending = errors.New("nav: calibration not complete")

// NoiseConfig is a filter noise pair.
type NoiseConfig struct {
	Process     float64 `yaml:"process"`
	Measurement float64 `yaml:"measurement"`
}

// Config holds the engine parameters. Zero values take defaults.
type Config struct {
	IMUs        int `yaml:"imus"`
	Proximities int `yaml:"proximities"`

	MinCalibrationSamples int     `yaml:"min_calibration_samples"`
	EmergencyDeceleration float64 `yaml:"emergency_deceleration"`

	// StripeSpacing is the known inter-stripe distance in meters.
	StripeSpacing float64 `yaml:"stripe_spacing"`

	// ForwardAxis selects which signed vector axis is "forward":
	// +/-1 for X, +/-2 for Y, +/-3 for Z.
	ForwardAxis int `yaml:"forward_axis"`

	// WallClearance is the nominal proximity-sensor distance to the
	// tube wall when the pod is centered, in meters.
	WallClearance float64 `yaml:"wall_clearance"`

	// ProximityBlend is how strongly a proximity observation pulls the
	// lateral/vertical displacement estimate toward it, in (0, 1].
	ProximityBlend float64 `yaml:"proximity_blend"`

	AccelNoise     NoiseConfig `yaml:"accel_noise"`
	GyroNoise      NoiseConfig `yaml:"gyro_noise"`
	ProximityNoise NoiseConfig `yaml:"proximity_noise"`
}

func (c Config) withDefaults() Config {
	if c.MinCalibrationSamples <= 0 {
		c.MinCalibrationSamples = MinCalibrationSamples
	}
	if c.EmergencyDeceleration <= 0 {
		c.EmergencyDeceleration = EmergencyDeceleration
	}
	if c.StripeSpacing <= 0 {
		c.StripeSpacing = 30.48 // 100 ft, the tube stripe interval
	}
	if c.ForwardAxis == 0 {
		c.ForwardAxis = 1
	}
	if c.WallClearance <= 0 {
		c.WallClearance = 0.05
	}
	if c.ProximityBlend <= 0 || c.ProximityBlend > 1 {
		c.ProximityBlend = 0.05
	}
	if c.AccelNoise.Process <= 0 {
		c.AccelNoise.Process = 0.02
	}
	if c.AccelNoise.Measurement <= 0 {
		c.AccelNoise.Measurement = 0.5
	}
	if c.GyroNoise.Process <= 0 {
		c.GyroNoise.Process = 0.01
	}
	if c.GyroNoise.Measurement <= 0 {
		c.GyroNoise.Measurement = 0.1
	}
	if c.ProximityNoise.Process <= 0 {
		c.ProximityNoise.Process = 0.01
	}
	if c.ProximityNoise.Measurement <= 0 {
		c.ProximityNoise.Measurement = 0.2
	}
	return c
}

// Engine is the navigation module. All Update and FinishCalibration
// calls must come from the single navigation goroutine; cross-goroutine
// readers use the published snapshot in the store.
type Engine struct {
	cfg     Config
	store   *pod.Store
	barrier *rendezvous.Barrier

	state pod.NavigationState

	accelFilters []*VecFilter
	gyroFilters  []*VecFilter
	proxFilters  []*Filter

	cal      []*CalibrationAccumulator
	gravity  r3.Vec   // tube-frame gravity, frozen at calibration
	gyroBias []r3.Vec // per-IMU, frozen at calibration

	orientation quat.Number
	prevAngular r3.Vec
	prevGyroAt  time.Time
	haveAngular bool

	velInt  integrator
	dispInt integrator

	acceleration r3.Vec
	velocity     r3.Vec
	displacement r3.Vec

	lastStripe uint32
}

// New constructs an engine in the calibrating state. The barrier is the
// rendezvous shared with the motor-control driver; the engine arrives
// at it inside FinishCalibration.
func New(cfg Config, store *pod.Store, barrier *rendezvous.Barrier) (*Engine, error) {
	cfg = cfg.withDefaults()
	if cfg.IMUs < 1 {
		return nil, fmt.Errorf("nav: imus must be >= 1, got %d", cfg.IMUs)
	}
	if cfg.Proximities < 0 {
		return nil, fmt.Errorf("nav: proximities must be >= 0, got %d", cfg.Proximities)
	}
	if cfg.ForwardAxis < -3 || cfg.ForwardAxis > 3 || cfg.ForwardAxis == 0 {
		return nil, fmt.Errorf("nav: forward_axis must be one of +/-1..3, got %d", cfg.ForwardAxis)
	}
	if store == nil {
		return nil, fmt.Errorf("nav: store is nil")
	}

	e := &Engine{
		cfg:         cfg,
		store:       store,
		barrier:     barrier,
		state:       pod.NavCalibrating,
		orientation: quat.Number{Real: 1},
	}
	for i := 0; i < cfg.IMUs; i++ {
		e.accelFilters = append(e.accelFilters, NewVecFilter(cfg.AccelNoise.Process, cfg.AccelNoise.Measurement))
		e.gyroFilters = append(e.gyroFilters, NewVecFilter(cfg.GyroNoise.Process, cfg.GyroNoise.Measurement))
		e.cal = append(e.cal, NewCalibrationAccumulator(cfg.MinCalibrationSamples))
		e.gyroBias = append(e.gyroBias, r3.Vec{})
	}
	for i := 0; i < cfg.Proximities; i++ {
		e.proxFilters = append(e.proxFilters, NewFilter(cfg.ProximityNoise.Process, cfg.ProximityNoise.Measurement))
	}
	e.publish()
	return e, nil
}

// Update processes a cycle where only the IMUs produced new samples.
func (e *Engine) Update(imus []pod.IMUReading) error {
	return e.step(imus, nil, nil)
}

// UpdateWithProximities processes a cycle with fresh IMU and proximity
// samples.
func (e *Engine) UpdateWithProximities(imus []pod.IMUReading, proxis []pod.ProximityReading) error {
	return e.step(imus, proxis, nil)
}

// UpdateWithStripeCount processes a cycle with fresh IMU and
// stripe-counter samples.
func (e *Engine) UpdateWithStripeCount(imus []pod.IMUReading, stripe pod.StripeCount) error {
	return e.step(imus, nil, &stripe)
}

// UpdateAll processes a cycle where all three sensor kinds produced new
// samples.
func (e *Engine) UpdateAll(imus []pod.IMUReading, proxis []pod.ProximityReading, stripe pod.StripeCount) error {
	return e.step(imus, proxis, &stripe)
}

func (e *Engine) step(imus []pod.IMUReading, proxis []pod.ProximityReading, stripe *pod.StripeCount) error {
	if len(imus) != e.cfg.IMUs {
		return fmt.Errorf("nav: got %d imu readings, want %d", len(imus), e.cfg.IMUs)
	}
	if len(proxis) > len(e.proxFilters) {
		return fmt.Errorf("nav: got %d proximity readings, want <= %d", len(proxis), len(e.proxFilters))
	}

	if e.state == pod.NavCalibrating {
		e.calibrationUpdate(imus)
		e.publish()
		return nil
	}

	e.inertialUpdate(imus)
	if len(proxis) > 0 {
		e.proximityUpdate(proxis)
	}
	if stripe != nil {
		e.stripeUpdate(*stripe)
	}
	e.publish()
	return nil
}

// calibrationUpdate feeds filtered stationary samples into each IMU's
// accumulator. Until every accumulator completes, all published
// kinematics stay at zero.
func (e *Engine) calibrationUpdate(imus []pod.IMUReading) {
	done := 0
	for i, imu := range imus {
		fa := e.accelFilters[i].Update(imu.Accel)
		fg := e.gyroFilters[i].Update(imu.Gyro)
		e.cal[i].Add(fa, fg)
		if e.cal[i].Complete() {
			done++
		}
	}
	if done < len(e.cal) {
		return
	}

	// Freeze: gravity is the cross-IMU mean, bias stays per-IMU.
	var gSum r3.Vec
	for i, acc := range e.cal {
		gSum = r3.Add(gSum, acc.Gravity())
		e.gyroBias[i] = acc.GyroBias()
		log.Printf("nav: imu %d calibrated: |g|=%.4f bias=%.5f,%.5f,%.5f noise=%.5f",
			i, r3.Norm(acc.Gravity()),
			acc.GyroBias().X, acc.GyroBias().Y, acc.GyroBias().Z,
			acc.NoiseStd())
	}
	e.gravity = r3.Scale(1/float64(len(e.cal)), gSum)
	e.state = pod.NavReady
}

// inertialUpdate runs the per-cycle fusion: denoise, de-bias, integrate
// orientation, strip gravity, integrate acceleration through to
// displacement.
func (e *Engine) inertialUpdate(imus []pod.IMUReading) {
	t := imus[0].Time

	var wSum, aSum r3.Vec
	for i, imu := range imus {
		fa := e.accelFilters[i].Update(imu.Accel)
		fg := e.gyroFilters[i].Update(imu.Gyro)
		wSum = r3.Add(wSum, r3.Sub(fg, e.gyroBias[i]))
		aSum = r3.Add(aSum, fa)
	}
	n := float64(len(imus))
	w := r3.Scale(1/n, wSum)
	aBody := r3.Scale(1/n, aSum)

	e.gyroUpdate(w, t)

	// The orientation maps the body frame into the tube frame captured
	// at calibration; gravity is subtracted there.
	aTube := r3.Rotation(e.orientation).Rotate(aBody)
	lin := r3.Sub(aTube, e.gravity)

	e.acceleration = lin
	e.velocity = e.velInt.add(lin, t)
	e.displacement = e.dispInt.add(e.velocity, t)
}

// gyroUpdate integrates the averaged angular velocity into the
// orientation quaternion and renormalizes to counter numerical drift.
func (e *Engine) gyroUpdate(w r3.Vec, t time.Time) {
	if !e.haveAngular {
		e.prevAngular = w
		e.prevGyroAt = t
		e.haveAngular = true
		return
	}

	dt := t.Sub(e.prevGyroAt).Seconds()
	if dt <= 0 {
		e.prevAngular = w
		return
	}

	avg := r3.Scale(0.5, r3.Add(e.prevAngular, w))
	if angle := r3.Norm(avg) * dt; angle > 0 {
		dq := r3.NewRotation(angle, avg)
		e.orientation = quat.Mul(e.orientation, quat.Number(dq))
		if norm := quat.Abs(e.orientation); norm > 0 {
			e.orientation = quat.Scale(1/norm, e.orientation)
		}
	}

	e.prevAngular = w
	e.prevGyroAt = t
}

// proximityUpdate damps the lateral and vertical displacement estimate
// toward the offsets implied by the wall-distance readings. The first
// half of the sensor ring faces the walls (lateral axis), the second
// half the track (vertical axis).
func (e *Engine) proximityUpdate(proxis []pod.ProximityReading) {
	lat, vert := crossAxes(e.cfg.ForwardAxis)

	half := len(proxis) / 2
	if half == 0 {
		half = len(proxis)
	}

	d := e.displacement
	if mean, ok := e.meanOffset(proxis[:half], 0); ok {
		cur := axisComponent(d, lat)
		d = withAxisComponent(d, lat, cur+e.cfg.ProximityBlend*(mean-cur))
	}
	if half < len(proxis) {
		if mean, ok := e.meanOffset(proxis[half:], half); ok {
			cur := axisComponent(d, vert)
			d = withAxisComponent(d, vert, cur+e.cfg.ProximityBlend*(mean-cur))
		}
	}
	e.displacement = d
	e.dispInt.set(d)
}

// meanOffset filters a slice of proximity readings (offset is the index
// of its first sensor) and returns the mean centering offset.
func (e *Engine) meanOffset(proxis []pod.ProximityReading, offset int) (float64, bool) {
	if len(proxis) == 0 {
		return 0, false
	}
	var sum float64
	for i, p := range proxis {
		sum += e.cfg.WallClearance - e.proxFilters[offset+i].Update(p.Distance)
	}
	return sum / float64(len(proxis)), true
}

// stripeUpdate snaps the forward displacement to the stripe counter's
// ground truth. Once stripes are flowing this dominates pure
// integration.
func (e *Engine) stripeUpdate(stripe pod.StripeCount) {
	if stripe.Count == e.lastStripe && stripe.Count == 0 {
		return
	}
	e.lastStripe = stripe.Count

	d := withAxisComponent(e.displacement, e.cfg.ForwardAxis,
		float64(stripe.Count)*e.cfg.StripeSpacing)
	e.displacement = d
	e.dispInt.set(d)
}

// FinishCalibration transitions the module from ready to operational
// and then arrives at the post-calibration rendezvous, blocking until
// the motor-control side arrives too. While calibration is incomplete
// it returns ErrCalibrationPending and changes nothing; the caller may
// retry.
func (e *Engine) FinishCalibration(ctx context.Context) error {
	if e == nil {
		return fmt.Errorf("nav: engine is nil")
	}
	if e.state != pod.NavReady {
		return ErrCalibrationPending
	}

	e.state = pod.NavOperational
	e.publish()

	if e.barrier != nil {
		if err := e.barrier.Await(ctx); err != nil {
			return fmt.Errorf("nav: post-calibration rendezvous: %w", err)
		}
	}
	return nil
}

// State returns the module's own lifecycle state.
func (e *Engine) State() pod.NavigationState {
	return e.state
}

// Acceleration returns the forward component of the acceleration
// estimate (negative while decelerating).
func (e *Engine) Acceleration() float64 {
	return axisComponent(e.acceleration, e.cfg.ForwardAxis)
}

// Velocity returns the forward component of the velocity estimate.
func (e *Engine) Velocity() float64 {
	return axisComponent(e.velocity, e.cfg.ForwardAxis)
}

// Displacement returns the forward component of the displacement
// estimate.
func (e *Engine) Displacement() float64 {
	return axisComponent(e.displacement, e.cfg.ForwardAxis)
}

// EmergencyBrakingDistance returns the distance needed to stop from the
// current forward velocity at the configured emergency deceleration.
func (e *Engine) EmergencyBrakingDistance() float64 {
	return brakingDistance(e.Velocity(), e.cfg.EmergencyDeceleration)
}

func brakingDistance(v, decel float64) float64 {
	return v * v / (2 * decel)
}

// publish writes the full snapshot to the store in one atomic set.
func (e *Engine) publish() {
	e.store.SetNavigation(pod.Navigation{
		Acceleration:    e.acceleration,
		Velocity:        e.velocity,
		Displacement:    e.displacement,
		BrakingDistance: e.EmergencyBrakingDistance(),
		State:           e.state,
	})
}
