package motor

import (
	"context"
	"testing"
	"time"

	"podctl/internal/pod"
	"podctl/internal/rendezvous"
)

func newTestDriver(t *testing.T, store *pod.Store, barrier *rendezvous.Barrier) *Driver {
	t.Helper()
	d, err := New(Config{TargetVelocity: 10, RampRate: 1, Interval: time.Millisecond}, store, barrier)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return d
}

func stepN(t *testing.T, d *Driver, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := d.Step(context.Background()); err != nil {
			t.Fatalf("Step() error: %v", err)
		}
	}
}

func TestRampToward(t *testing.T) {
	cases := []struct {
		current, target, rate, want float64
	}{
		{0, 10, 1, 1},
		{9.5, 10, 1, 10},
		{10, 0, 1, 9},
		{0.5, 0, 1, 0},
		{5, 5, 1, 5},
	}
	for _, tc := range cases {
		if got := rampToward(tc.current, tc.target, tc.rate); got != tc.want {
			t.Fatalf("rampToward(%v,%v,%v)=%v want %v", tc.current, tc.target, tc.rate, got, tc.want)
		}
	}
}

func TestAcceleratingRampsToTarget(t *testing.T) {
	store := pod.NewStore()
	d := newTestDriver(t, store, nil)
	store.SetStateMachine(pod.StateMachine{Phase: pod.PhaseAccelerating})

	stepN(t, d, 5)
	if got := d.Command(); got != 5 {
		t.Fatalf("command=%v after 5 cycles, want 5", got)
	}
	stepN(t, d, 20)
	if got := d.Command(); got != 10 {
		t.Fatalf("command=%v want capped at target 10", got)
	}
	if got := store.Motors().VelocityFL; got != 10 {
		t.Fatalf("published velocity=%v want 10", got)
	}
}

func TestDeceleratingRampsToZero(t *testing.T) {
	store := pod.NewStore()
	d := newTestDriver(t, store, nil)
	store.SetStateMachine(pod.StateMachine{Phase: pod.PhaseAccelerating})
	stepN(t, d, 20)

	store.SetStateMachine(pod.StateMachine{Phase: pod.PhaseDecelerating})
	stepN(t, d, 20)
	if got := d.Command(); got != 0 {
		t.Fatalf("command=%v want 0", got)
	}
}

func TestEmergencyBrakingIsImmediate(t *testing.T) {
	store := pod.NewStore()
	d := newTestDriver(t, store, nil)
	store.SetStateMachine(pod.StateMachine{Phase: pod.PhaseAccelerating})
	stepN(t, d, 10)
	if d.Command() == 0 {
		t.Fatal("expected non-zero command before failure")
	}

	store.SetStateMachine(pod.StateMachine{Phase: pod.PhaseEmergencyBraking, CriticalFailure: true})
	stepN(t, d, 1)
	if got := d.Command(); got != 0 {
		t.Fatalf("command=%v want immediate 0", got)
	}
	m := store.Motors()
	if m.VelocityFL != 0 || m.TorqueFL != -1 {
		t.Fatalf("motors=%+v want zero velocity, braking torque", m)
	}
}

func TestFailureStoppedKeepsCommandingZero(t *testing.T) {
	store := pod.NewStore()
	d := newTestDriver(t, store, nil)
	store.SetStateMachine(pod.StateMachine{Phase: pod.PhaseFailureStopped, CriticalFailure: true})
	stepN(t, d, 5)
	if got := store.Motors().VelocityFL; got != 0 {
		t.Fatalf("published velocity=%v want 0", got)
	}
}

// During calibration the driver parks on the rendezvous until the
// navigation side arrives, then never waits again.
func TestCalibrationRendezvous(t *testing.T) {
	barrier, err := rendezvous.New(2)
	if err != nil {
		t.Fatalf("rendezvous.New() error: %v", err)
	}
	store := pod.NewStore()
	d := newTestDriver(t, store, barrier)
	store.SetStateMachine(pod.StateMachine{Phase: pod.PhaseCalibrating})

	done := make(chan error, 1)
	go func() { done <- d.Step(context.Background()) }()

	select {
	case err := <-done:
		t.Fatalf("Step returned before navigation arrived: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if err := barrier.Await(context.Background()); err != nil {
		t.Fatalf("navigation-side Await() error: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Step() error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("driver never released from rendezvous")
	}

	// Later calibration cycles must not block.
	stepN(t, d, 3)
}

func TestCalibrationRendezvousCancel(t *testing.T) {
	barrier, err := rendezvous.New(2)
	if err != nil {
		t.Fatalf("rendezvous.New() error: %v", err)
	}
	store := pod.NewStore()
	d := newTestDriver(t, store, barrier)
	store.SetStateMachine(pod.StateMachine{Phase: pod.PhaseCalibrating})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Step(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-done; err == nil {
		t.Fatal("expected error from cancelled rendezvous")
	}
}
