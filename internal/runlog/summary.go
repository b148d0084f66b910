package runlog

import (
	"database/sql"
	"fmt"
	"time"
)

// RunSummary condenses one recorded run.
type RunSummary struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Finished  bool

	Snapshots   int
	Transitions []string

	MaxVelocity     float64
	MaxDisplacement float64
}

// Summarize reads the most recent run from the database at path.
func Summarize(path string) (RunSummary, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return RunSummary{}, fmt.Errorf("runlog: open %s: %w", path, err)
	}
	defer db.Close()

	var s RunSummary
	var ended sql.NullTime
	err = db.QueryRow(
		`SELECT id, started_at, ended_at FROM runs ORDER BY started_at DESC LIMIT 1`).
		Scan(&s.ID, &s.StartedAt, &ended)
	if err == sql.ErrNoRows {
		return RunSummary{}, fmt.Errorf("runlog: no runs recorded in %s", path)
	}
	if err != nil {
		return RunSummary{}, fmt.Errorf("runlog: read run: %w", err)
	}
	if ended.Valid {
		s.EndedAt = ended.Time
		s.Finished = true
	}

	err = db.QueryRow(
		`SELECT COUNT(*), COALESCE(MAX(velocity), 0), COALESCE(MAX(displacement), 0)
		 FROM snapshots WHERE run_id = ?`, s.ID).
		Scan(&s.Snapshots, &s.MaxVelocity, &s.MaxDisplacement)
	if err != nil {
		return RunSummary{}, fmt.Errorf("runlog: read snapshots: %w", err)
	}

	rows, err := db.Query(
		`SELECT from_phase, to_phase, event FROM transitions WHERE run_id = ? ORDER BY at`, s.ID)
	if err != nil {
		return RunSummary{}, fmt.Errorf("runlog: read transitions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var from, to, event string
		if err := rows.Scan(&from, &to, &event); err != nil {
			return RunSummary{}, fmt.Errorf("runlog: scan transition: %w", err)
		}
		s.Transitions = append(s.Transitions, fmt.Sprintf("%s -> %s on %s", from, to, event))
	}
	if err := rows.Err(); err != nil {
		return RunSummary{}, fmt.Errorf("runlog: read transitions: %w", err)
	}
	return s, nil
}
