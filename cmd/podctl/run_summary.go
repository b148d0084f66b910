package main

import (
	"fmt"
	"strings"

	"podctl/internal/runlog"
)

// printRunSummary prints a condensed view of the most recent run in the
// given run-log database.
func printRunSummary(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}

	s, err := runlog.Summarize(path)
	if err != nil {
		return err
	}

	fmt.Printf("path: %s\n", path)
	fmt.Printf("run: %s\n", s.ID)
	fmt.Printf("started: %s\n", s.StartedAt.Format("2006-01-02 15:04:05.000"))
	if s.Finished {
		fmt.Printf("duration: %s\n", s.EndedAt.Sub(s.StartedAt))
	} else {
		fmt.Printf("duration: (run did not finish)\n")
	}
	fmt.Printf("snapshots: %d\n", s.Snapshots)
	fmt.Printf("max_velocity: %.2f\n", s.MaxVelocity)
	fmt.Printf("max_displacement: %.2f\n", s.MaxDisplacement)
	fmt.Printf("transitions:\n")
	for _, tr := range s.Transitions {
		fmt.Printf("  %s\n", tr)
	}
	return nil
}
