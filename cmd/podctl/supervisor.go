package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"podctl/internal/config"
	"podctl/internal/nav"
	"podctl/internal/pod"
	"podctl/internal/runlog"
	"podctl/internal/sensors"
	"podctl/internal/statemachine"
)

// stopEpsilon is the forward velocity below which the pod counts as
// stopped, m/s.
const stopEpsilon = 0.05

// snapshotEvery is how many loop cycles pass between run-log snapshots.
const snapshotEvery = 10

// supervisor owns the acquisition and fusion loop and turns the fused
// estimate plus track geometry into state-machine events. It is the only
// goroutine that feeds the navigation engine.
type supervisor struct {
	cfg     config.Config
	store   *pod.Store
	machine *statemachine.Machine
	engine  *nav.Engine
	rig     *sensors.Rig

	batteries *sensors.FakeBatteries
	stripes   *sensors.StripeCounter
	recorder  *runlog.Recorder

	launched   bool
	launchedAt time.Duration
	prevTick   time.Duration
	cycles     int
	cycleDone  bool
}

// Run drives the loop from power-on through a complete run cycle. It
// returns nil when the pod is back in the idle phase, or an error when
// the run ended in the failure-stopped phase or the context was
// cancelled.
func (s *supervisor) Run(ctx context.Context) error {
	start := time.Now()
	s.apply(ctx, start, statemachine.EventOnStart)

	ticker := time.NewTicker(s.cfg.Loop.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := s.step(ctx, now, now.Sub(start)); err != nil {
				return err
			}
			if s.cycleDone {
				if s.machine.Phase() == pod.PhaseFailureStopped {
					return fmt.Errorf("run ended in %s", pod.PhaseFailureStopped)
				}
				return nil
			}
		}
	}
}

// step runs one acquisition and fusion cycle. Exposed separately so
// tests can drive the loop with synthetic clocks.
func (s *supervisor) step(ctx context.Context, now time.Time, elapsed time.Duration) error {
	bundle := s.sample(now, elapsed)
	s.store.SetSensors(bundle)

	if err := s.engine.UpdateAll(bundle.IMUs, bundle.Proximities, bundle.Stripes); err != nil {
		return fmt.Errorf("navigation update: %w", err)
	}
	if s.engine.State() == pod.NavFailure {
		s.apply(ctx, now, statemachine.EventCriticalFailure)
	}

	switch s.machine.Phase() {
	case pod.PhaseCalibrating:
		if s.engine.State() == pod.NavReady {
			if err := s.engine.FinishCalibration(ctx); err != nil {
				return err
			}
			s.apply(ctx, now, statemachine.EventCalibrationComplete)
		}
	case pod.PhaseReady:
		s.launched = true
		s.launchedAt = elapsed
		s.apply(ctx, now, statemachine.EventLaunch)
	case pod.PhaseAccelerating:
		if s.engine.Displacement() >= s.cfg.Track.RunLength {
			// The braking point was missed outright.
			s.apply(ctx, now, statemachine.EventCriticalFailure)
			break
		}
		if s.engine.Displacement()+s.engine.EmergencyBrakingDistance() >= s.cfg.Track.MaxDistance {
			s.apply(ctx, now, statemachine.EventMaxDistanceReached)
		}
	case pod.PhaseDecelerating:
		if s.engine.Displacement() >= s.cfg.Track.RunLength || s.engine.Velocity() <= stopEpsilon {
			s.apply(ctx, now, statemachine.EventEndOfRunReached)
		}
	case pod.PhaseRunComplete:
		if s.engine.Velocity() <= stopEpsilon {
			s.apply(ctx, now, statemachine.EventOnExit)
		}
	case pod.PhaseExiting:
		if s.engine.Displacement() >= s.cfg.Track.TubeLength {
			s.apply(ctx, now, statemachine.EventEndOfTubeReached)
			s.cycleDone = true
		}
	case pod.PhaseEmergencyBraking:
		if s.engine.Velocity() <= stopEpsilon {
			s.apply(ctx, now, statemachine.EventVehicleStopped)
			s.cycleDone = true
		}
	}

	s.cycles++
	if s.recorder != nil && s.cycles%snapshotEvery == 0 {
		sm := s.store.StateMachine()
		navSnap := s.store.Navigation()
		err := s.recorder.Snapshot(ctx, now, sm, navSnap,
			s.engine.Velocity(), s.engine.Displacement(), s.store.Motors().VelocityFL)
		if err != nil {
			log.Printf("runlog: snapshot: %v", err)
		}
	}
	return nil
}

// sample produces this cycle's sensor bundle. The run profile clock only
// starts ticking at launch, so the rig stays stationary through
// calibration. A hardware stripe counter overrides the synthesized
// count.
func (s *supervisor) sample(now time.Time, elapsed time.Duration) pod.Sensors {
	profile := time.Duration(0)
	if s.launched {
		profile = elapsed - s.launchedAt
	}
	bundle := s.rig.Sample(profile, now)
	if s.stripes != nil {
		bundle.Stripes = s.stripes.Read(now)
	}

	if s.batteries != nil {
		dt := elapsed - s.prevTick
		s.store.SetBatteries(s.batteries.Sample(dt, s.moving()))
	}
	s.prevTick = elapsed
	return bundle
}

func (s *supervisor) moving() bool {
	switch s.machine.Phase() {
	case pod.PhaseAccelerating, pod.PhaseDecelerating, pod.PhaseExiting, pod.PhaseEmergencyBraking:
		return true
	}
	return false
}

// apply feeds one event to the machine and records the transition if it
// happened.
func (s *supervisor) apply(ctx context.Context, at time.Time, event statemachine.Event) {
	from := s.machine.Phase()
	next, ok := s.machine.Apply(event)
	if !ok {
		return
	}
	if s.recorder != nil {
		if err := s.recorder.Transition(ctx, at, from, next, event.String()); err != nil {
			log.Printf("runlog: transition: %v", err)
		}
	}
}
