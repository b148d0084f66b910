// Package sensors produces the raw sensor bundles the navigation engine
// consumes. The fake rig synthesizes IMU, proximity and stripe readings
// from a scripted run profile so the whole controller can run without
// hardware; the stripe counter backend reads a real optical sensor
// through the Linux GPIO character device on embedded builds.
package sensors

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"podctl/internal/pod"
	"podctl/internal/sim"
)

// RigConfig shapes the synthesized readings.
type RigConfig struct {
	// IMUs and Proximities set the bundle sizes. The proximity ring is
	// split half lateral, half vertical.
	IMUs        int `yaml:"imus"`
	Proximities int `yaml:"proximities"`

	// ForwardAxis is the tube-frame axis the run profile accelerates
	// along: 1..3 for +X/+Y/+Z, negative for the opposite direction.
	ForwardAxis int `yaml:"forward_axis"`

	// Gravity is the magnitude of the gravity vector applied on the
	// vertical body axis, m/s^2.
	Gravity float64 `yaml:"gravity"`

	// WallClearance is the nominal rail gap reported by proximity
	// sensors, m.
	WallClearance float64 `yaml:"wall_clearance"`

	// StripeSpacing is the distance between track stripes, m.
	StripeSpacing float64 `yaml:"stripe_spacing"`

	// AccelNoiseStd, GyroNoiseStd and ProximityNoiseStd are the standard
	// deviations of the additive white noise on each channel.
	AccelNoiseStd     float64 `yaml:"accel_noise_std"`
	GyroNoiseStd      float64 `yaml:"gyro_noise_std"`
	ProximityNoiseStd float64 `yaml:"proximity_noise_std"`

	// Seed makes a rig deterministic. Zero seeds from the clock.
	Seed int64 `yaml:"seed"`
}

func (c RigConfig) withDefaults() RigConfig {
	if c.IMUs <= 0 {
		c.IMUs = 2
	}
	if c.Proximities <= 0 {
		c.Proximities = 4
	}
	if c.ForwardAxis == 0 {
		c.ForwardAxis = 1
	}
	if c.Gravity == 0 {
		c.Gravity = 9.80665
	}
	if c.WallClearance <= 0 {
		c.WallClearance = 0.05
	}
	if c.StripeSpacing <= 0 {
		c.StripeSpacing = 30.48
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// Rig synthesizes sensor bundles along a scripted run profile. It keeps
// the true kinematic state internally so proximity and stripe readings
// stay consistent with the accelerations it reports.
type Rig struct {
	cfg      RigConfig
	scenario *sim.Scenario
	rng      *rand.Rand

	prevAccel float64
	prevAt    time.Duration
	primed    bool

	trueVelocity     float64
	trueDisplacement float64
}

// NewRig builds a rig for the given profile. A nil scenario yields a
// stationary pod, which is what calibration needs.
func NewRig(cfg RigConfig, scenario *sim.Scenario) (*Rig, error) {
	cfg = cfg.withDefaults()
	if cfg.ForwardAxis < -3 || cfg.ForwardAxis > 3 {
		return nil, fmt.Errorf("sensors: forward axis %d out of range", cfg.ForwardAxis)
	}
	return &Rig{cfg: cfg, scenario: scenario, rng: rand.New(rand.NewSource(cfg.Seed))}, nil
}

// TrueVelocity returns the rig's ground-truth forward velocity, m/s.
func (r *Rig) TrueVelocity() float64 { return r.trueVelocity }

// TrueDisplacement returns the rig's ground-truth forward displacement, m.
func (r *Rig) TrueDisplacement() float64 { return r.trueDisplacement }

// Sample advances the true state to elapsed and returns a full sensor
// bundle stamped at. Calls must use non-decreasing elapsed values.
func (r *Rig) Sample(elapsed time.Duration, at time.Time) pod.Sensors {
	accel := r.scenario.AccelAt(elapsed)
	r.advance(accel, elapsed)

	s := pod.Sensors{
		IMUs:        make([]pod.IMUReading, r.cfg.IMUs),
		Proximities: make([]pod.ProximityReading, r.cfg.Proximities),
	}
	for i := range s.IMUs {
		s.IMUs[i] = pod.IMUReading{
			Time:  at,
			Accel: r.bodyAccel(accel),
			Gyro:  r.noiseVec(r.cfg.GyroNoiseStd),
		}
	}
	for i := range s.Proximities {
		s.Proximities[i] = pod.ProximityReading{
			Time:     at,
			Distance: r.cfg.WallClearance + r.noise(r.cfg.ProximityNoiseStd),
		}
	}
	s.Stripes = pod.StripeCount{
		Time:  at,
		Count: uint32(math.Max(0, r.trueDisplacement) / r.cfg.StripeSpacing),
	}
	return s
}

func (r *Rig) advance(accel float64, elapsed time.Duration) {
	if !r.primed {
		r.prevAccel, r.prevAt, r.primed = accel, elapsed, true
		return
	}
	dt := (elapsed - r.prevAt).Seconds()
	if dt > 0 {
		v0 := r.trueVelocity
		r.trueVelocity += 0.5 * (r.prevAccel + accel) * dt
		r.trueDisplacement += 0.5 * (v0 + r.trueVelocity) * dt
	}
	r.prevAccel, r.prevAt = accel, elapsed
}

// bodyAccel is what an ideal strapped-down accelerometer reads for a pod
// translating down the tube: the specific force, forward acceleration
// plus the reaction to gravity on the vertical axis.
func (r *Rig) bodyAccel(forward float64) r3.Vec {
	v := r.noiseVec(r.cfg.AccelNoiseStd)
	v.Z += r.cfg.Gravity
	switch r.cfg.ForwardAxis {
	case 1:
		v.X += forward
	case -1:
		v.X -= forward
	case 2:
		v.Y += forward
	case -2:
		v.Y -= forward
	case 3:
		v.Z += forward
	case -3:
		v.Z -= forward
	}
	return v
}

func (r *Rig) noise(std float64) float64 {
	if std <= 0 {
		return 0
	}
	return r.rng.NormFloat64() * std
}

func (r *Rig) noiseVec(std float64) r3.Vec {
	return r3.Vec{X: r.noise(std), Y: r.noise(std), Z: r.noise(std)}
}
