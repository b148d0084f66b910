package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"podctl/internal/pod"
)

func openTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "run.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecorderRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := openTestRecorder(t)

	start := time.Now()
	id, err := r.Begin(ctx, start)
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if id == "" || r.RunID() != id {
		t.Fatalf("run id=%q", id)
	}

	sm := pod.StateMachine{Phase: pod.PhaseAccelerating}
	nav := pod.Navigation{BrakingDistance: 12.5, State: pod.NavOperational}
	if err := r.Snapshot(ctx, start.Add(time.Second), sm, nav, 24, 118, 24.5); err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if err := r.Transition(ctx, start.Add(2*time.Second), pod.PhaseAccelerating, pod.PhaseDecelerating, "max-distance-reached"); err != nil {
		t.Fatalf("Transition() error: %v", err)
	}
	if err := r.Finish(ctx, start.Add(3*time.Second)); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}

	var snapshots int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM snapshots WHERE run_id = ?`, id).Scan(&snapshots); err != nil {
		t.Fatalf("count snapshots: %v", err)
	}
	if snapshots != 1 {
		t.Fatalf("snapshots=%d want 1", snapshots)
	}

	var from, to, event string
	err = r.db.QueryRow(`SELECT from_phase, to_phase, event FROM transitions WHERE run_id = ?`, id).
		Scan(&from, &to, &event)
	if err != nil {
		t.Fatalf("read transition: %v", err)
	}
	if from != "accelerating" || to != "decelerating" || event != "max-distance-reached" {
		t.Fatalf("transition %s->%s on %s", from, to, event)
	}

	var ended bool
	if err := r.db.QueryRow(`SELECT ended_at IS NOT NULL FROM runs WHERE id = ?`, id).Scan(&ended); err != nil {
		t.Fatalf("read run: %v", err)
	}
	if !ended {
		t.Fatal("run has no end stamp")
	}
}

func TestRecorderRequiresActiveRun(t *testing.T) {
	ctx := context.Background()
	r := openTestRecorder(t)

	if err := r.Snapshot(ctx, time.Now(), pod.StateMachine{}, pod.Navigation{}, 0, 0, 0); err == nil {
		t.Fatal("expected error before Begin")
	}
	if err := r.Transition(ctx, time.Now(), pod.PhaseIdle, pod.PhaseCalibrating, "on-start"); err == nil {
		t.Fatal("expected error before Begin")
	}
}

func TestRecorderClosed(t *testing.T) {
	r := openTestRecorder(t)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, err := r.Begin(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error after Close")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
}
