package pod

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Phase is the pod-level operating phase. It is the authoritative answer
// to "what is the vehicle doing right now"; both navigation and motor
// control key their behavior off it.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCalibrating
	PhaseReady
	PhaseAccelerating
	PhaseDecelerating
	PhaseRunComplete
	PhaseExiting
	PhaseEmergencyBraking
	PhaseFailureStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCalibrating:
		return "calibrating"
	case PhaseReady:
		return "ready"
	case PhaseAccelerating:
		return "accelerating"
	case PhaseDecelerating:
		return "decelerating"
	case PhaseRunComplete:
		return "run-complete"
	case PhaseExiting:
		return "exiting"
	case PhaseEmergencyBraking:
		return "emergency-braking"
	case PhaseFailureStopped:
		return "failure-stopped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the pod can only leave this phase through
// explicit operator action (which is outside the control core).
func (p Phase) Terminal() bool {
	return p == PhaseFailureStopped
}

// StateMachine is the published state-machine substructure: the current
// phase plus the critical-failure flag, which is orthogonal to phase.
type StateMachine struct {
	Phase           Phase
	CriticalFailure bool
}

// NavigationState is the navigation module's own lifecycle, distinct
// from the pod Phase.
type NavigationState int

const (
	NavCalibrating NavigationState = iota
	NavReady
	NavOperational
	NavFailure
)

func (s NavigationState) String() string {
	switch s {
	case NavCalibrating:
		return "calibrating"
	case NavReady:
		return "ready"
	case NavOperational:
		return "operational"
	case NavFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Navigation is the fused kinematic estimate published by the
// navigation engine. All fields are written together under one lock
// acquisition, so a reader never observes a half-updated snapshot.
type Navigation struct {
	Acceleration r3.Vec
	Velocity     r3.Vec
	Displacement r3.Vec

	// BrakingDistance is the distance needed to stop from the current
	// forward velocity at the emergency deceleration rate.
	BrakingDistance float64

	State NavigationState
}

// IMUReading is one inertial sample: specific force and angular rate in
// the sensor frame.
type IMUReading struct {
	Time  time.Time
	Accel r3.Vec // m/s^2, includes gravity until calibration removes it
	Gyro  r3.Vec // rad/s
}

// ProximityReading is a single wall-distance sample.
type ProximityReading struct {
	Time     time.Time
	Distance float64 // meters to the nearest surface
}

// StripeCount is the tube stripe counter: a monotonically increasing
// count of ground-truth position markers passed since the run started.
type StripeCount struct {
	Time  time.Time
	Count uint32
}

// Sensors is the raw sensor bundle as produced by the acquisition side.
// The navigation engine treats a bundle as an immutable input snapshot.
type Sensors struct {
	IMUs        []IMUReading
	Proximities []ProximityReading
	Stripes     StripeCount
}

// Motors is the actuation substructure: commanded angular velocity and
// torque per wheel.
type Motors struct {
	VelocityFL float64
	VelocityFR float64
	VelocityBL float64
	VelocityBR float64

	TorqueFL float64
	TorqueFR float64
	TorqueBL float64
	TorqueBR float64
}

// BatteryReading is the state of one battery pack.
type BatteryReading struct {
	Voltage      float64
	Current      float64
	Charge       float64 // 0..1
	TemperatureC float64
}

// Batteries is the battery management substructure.
type Batteries struct {
	Packs []BatteryReading
}
