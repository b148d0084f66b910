//go:build linux

package main

import (
	"log"

	"golang.org/x/sys/unix"
)

// lockMemory pins the process address space so the control loop never
// takes a page fault mid-run. Failure is logged, not fatal: development
// hosts often lack the RLIMIT_MEMLOCK headroom.
func lockMemory() {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		log.Printf("mlockall failed (continuing unlocked): %v", err)
	}
}
