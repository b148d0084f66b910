// Package runlog persists each run to a local SQLite database for
// post-run analysis: the run itself, periodic state snapshots, and every
// phase transition.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"podctl/internal/pod"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	ended_at   TIMESTAMP
);
CREATE TABLE IF NOT EXISTS snapshots (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	at               TIMESTAMP NOT NULL,
	phase            TEXT NOT NULL,
	nav_state        TEXT NOT NULL,
	velocity         REAL NOT NULL,
	displacement     REAL NOT NULL,
	braking_distance REAL NOT NULL,
	motor_velocity   REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS transitions (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	at         TIMESTAMP NOT NULL,
	from_phase TEXT NOT NULL,
	to_phase   TEXT NOT NULL,
	event      TEXT NOT NULL
);
`

// Recorder writes run history to SQLite.
type Recorder struct {
	db    *sql.DB
	runID string
}

// Open creates or opens the database at path and ensures the schema.
// ":memory:" works for tests.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runlog: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("runlog: apply schema: %w", err)
	}
	return &Recorder{db: db}, nil
}

// Begin starts a new run and returns its id.
func (r *Recorder) Begin(ctx context.Context, at time.Time) (string, error) {
	if r == nil || r.db == nil {
		return "", fmt.Errorf("runlog: recorder is closed")
	}
	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`, id, at); err != nil {
		return "", fmt.Errorf("runlog: begin run: %w", err)
	}
	r.runID = id
	return id, nil
}

// RunID returns the current run id, empty before Begin.
func (r *Recorder) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

// Snapshot records one periodic state sample. Velocity and displacement
// are the forward components of the navigation estimate.
func (r *Recorder) Snapshot(ctx context.Context, at time.Time, sm pod.StateMachine, nav pod.Navigation, velocity, displacement, motorVelocity float64) error {
	if err := r.active(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO snapshots (run_id, at, phase, nav_state, velocity, displacement, braking_distance, motor_velocity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID, at, sm.Phase.String(), nav.State.String(), velocity, displacement, nav.BrakingDistance, motorVelocity)
	if err != nil {
		return fmt.Errorf("runlog: snapshot: %w", err)
	}
	return nil
}

// Transition records one phase change.
func (r *Recorder) Transition(ctx context.Context, at time.Time, from, to pod.Phase, event string) error {
	if err := r.active(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transitions (run_id, at, from_phase, to_phase, event) VALUES (?, ?, ?, ?, ?)`,
		r.runID, at, from.String(), to.String(), event)
	if err != nil {
		return fmt.Errorf("runlog: transition: %w", err)
	}
	return nil
}

// Finish stamps the run end.
func (r *Recorder) Finish(ctx context.Context, at time.Time) error {
	if err := r.active(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ? WHERE id = ?`, at, r.runID)
	if err != nil {
		return fmt.Errorf("runlog: finish run: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Recorder) active() error {
	if r == nil || r.db == nil {
		return fmt.Errorf("runlog: recorder is closed")
	}
	if r.runID == "" {
		return fmt.Errorf("runlog: no active run")
	}
	return nil
}
