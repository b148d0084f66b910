//go:build !linux

package main

// lockMemory is a no-op on platforms without mlockall.
func lockMemory() {}
