// Package motor drives the propulsion side of the controller: it keys
// its behavior off the pod phase, consumes the published navigation
// estimate, and writes motor commands back to the shared store. At the
// calibration boundary it synchronizes with the navigation engine
// through the shared rendezvous barrier so it never trusts fused output
// before calibration is done.
package motor

import (
	"context"
	"fmt"
	"log"
	"time"

	"podctl/internal/pod"
	"podctl/internal/rendezvous"
)

// Config holds the propulsion parameters. Zero values take defaults.
type Config struct {
	// TargetVelocity is the cruise velocity commanded during the
	// acceleration phase, in m/s.
	TargetVelocity float64 `yaml:"target_velocity"`

	// RampRate limits how fast the velocity command changes, in m/s
	// per control cycle.
	RampRate float64 `yaml:"ramp_rate"`

	// ServiceVelocity is the crawl speed used while exiting the tube.
	ServiceVelocity float64 `yaml:"service_velocity"`

	// Interval is the control cycle period.
	Interval time.Duration `yaml:"interval"`
}

func (c Config) withDefaults() Config {
	if c.TargetVelocity <= 0 {
		c.TargetVelocity = 90
	}
	if c.RampRate <= 0 {
		c.RampRate = 0.5
	}
	if c.ServiceVelocity <= 0 {
		c.ServiceVelocity = 2
	}
	if c.Interval <= 0 {
		c.Interval = 10 * time.Millisecond
	}
	return c
}

// Driver is the motor-control loop.
type Driver struct {
	cfg     Config
	store   *pod.Store
	barrier *rendezvous.Barrier

	initialized bool
	synced      bool
	command     float64 // current velocity command, m/s
}

// New constructs a driver. The barrier is the post-calibration
// rendezvous shared with the navigation engine.
func New(cfg Config, store *pod.Store, barrier *rendezvous.Barrier) (*Driver, error) {
	if store == nil {
		return nil, fmt.Errorf("motor: store is nil")
	}
	return &Driver{cfg: cfg.withDefaults(), store: store, barrier: barrier}, nil
}

// Run executes the control loop until ctx is done.
func (d *Driver) Run(ctx context.Context) error {
	if d == nil {
		return fmt.Errorf("motor: driver is nil")
	}

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.Step(ctx); err != nil {
				return err
			}
		}
	}
}

// Step runs one control cycle. Exposed so tests and the supervisor can
// drive the loop deterministically.
func (d *Driver) Step(ctx context.Context) error {
	sm := d.store.StateMachine()

	switch sm.Phase {
	case pod.PhaseIdle:
		d.initMotors()
		d.command = 0
	case pod.PhaseCalibrating:
		if err := d.prepare(ctx); err != nil {
			return err
		}
	case pod.PhaseReady:
		d.command = 0
	case pod.PhaseAccelerating:
		d.command = rampToward(d.command, d.cfg.TargetVelocity, d.cfg.RampRate)
	case pod.PhaseDecelerating:
		d.command = rampToward(d.command, 0, d.cfg.RampRate)
	case pod.PhaseRunComplete:
		d.command = 0
	case pod.PhaseExiting:
		d.command = rampToward(d.command, d.cfg.ServiceVelocity, d.cfg.RampRate)
	case pod.PhaseEmergencyBraking:
		// Hard stop: no ramp.
		d.command = 0
	case pod.PhaseFailureStopped:
		d.command = 0
	}

	d.publish(sm.Phase)
	return nil
}

// Command returns the current velocity command.
func (d *Driver) Command() float64 {
	return d.command
}

func (d *Driver) initMotors() {
	if d.initialized {
		return
	}
	d.initialized = true
	log.Printf("motor: controllers initialized")
	d.store.SetMotors(pod.Motors{})
}

// prepare is the calibration-phase behavior: arrive at the rendezvous
// and block until navigation declares its output trustworthy. The
// barrier is one-shot, so later cycles in this phase fall through.
func (d *Driver) prepare(ctx context.Context) error {
	if d.synced || d.barrier == nil {
		return nil
	}
	log.Printf("motor: waiting for navigation calibration")
	if err := d.barrier.Await(ctx); err != nil {
		return fmt.Errorf("motor: post-calibration rendezvous: %w", err)
	}
	d.synced = true
	log.Printf("motor: navigation calibrated, propulsion armed")
	return nil
}

func (d *Driver) publish(phase pod.Phase) {
	var torque float64
	if phase == pod.PhaseEmergencyBraking {
		torque = -1
	}
	d.store.SetMotors(pod.Motors{
		VelocityFL: d.command,
		VelocityFR: d.command,
		VelocityBL: d.command,
		VelocityBR: d.command,
		TorqueFL:   torque,
		TorqueFR:   torque,
		TorqueBL:   torque,
		TorqueBR:   torque,
	})
}

func rampToward(current, target, rate float64) float64 {
	switch {
	case current < target-rate:
		return current + rate
	case current > target+rate:
		return current - rate
	default:
		return target
	}
}
