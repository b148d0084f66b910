// Package statemachine implements the pod-level operating-phase machine.
//
// The machine is a total function over (phase, event): every pair has a
// defined outcome, and any pair without an entry in the transition
// table is a deliberate no-op rather than an error. Transition side
// effects are limited to publishing the new phase to the shared store
// and logging.
package statemachine

import (
	"log"
	"sync"

	"podctl/internal/pod"
)

// Event is a discrete occurrence fed to the machine, one at a time.
// Events carry no payload beyond their identity.
type Event int

const (
	EventOnStart Event = iota
	EventCalibrationComplete
	EventLaunch
	EventMaxDistanceReached
	EventEndOfRunReached
	EventOnExit
	EventEndOfTubeReached
	EventCriticalFailure
	EventVehicleStopped
)

func (e Event) String() string {
	switch e {
	case EventOnStart:
		return "on-start"
	case EventCalibrationComplete:
		return "calibration-complete"
	case EventLaunch:
		return "launch"
	case EventMaxDistanceReached:
		return "max-distance-reached"
	case EventEndOfRunReached:
		return "end-of-run-reached"
	case EventOnExit:
		return "on-exit"
	case EventEndOfTubeReached:
		return "end-of-tube-reached"
	case EventCriticalFailure:
		return "critical-failure"
	case EventVehicleStopped:
		return "vehicle-stopped"
	default:
		return "unknown"
	}
}

type transitionKey struct {
	phase pod.Phase
	event Event
}

// transitions is the exhaustive table of defined phase changes. Pairs
// absent from this table leave the machine where it is.
var transitions = map[transitionKey]pod.Phase{
	{pod.PhaseIdle, EventOnStart}:                      pod.PhaseCalibrating,
	{pod.PhaseCalibrating, EventCalibrationComplete}:   pod.PhaseReady,
	{pod.PhaseReady, EventLaunch}:                      pod.PhaseAccelerating,
	{pod.PhaseAccelerating, EventMaxDistanceReached}:   pod.PhaseDecelerating,
	{pod.PhaseDecelerating, EventEndOfRunReached}:      pod.PhaseRunComplete,
	{pod.PhaseRunComplete, EventOnExit}:                pod.PhaseExiting,
	{pod.PhaseExiting, EventEndOfTubeReached}:          pod.PhaseIdle,
	{pod.PhaseEmergencyBraking, EventVehicleStopped}:   pod.PhaseFailureStopped,

	// A critical failure forces emergency braking from every phase that
	// is not already braking or stopped.
	{pod.PhaseIdle, EventCriticalFailure}:          pod.PhaseEmergencyBraking,
	{pod.PhaseCalibrating, EventCriticalFailure}:   pod.PhaseEmergencyBraking,
	{pod.PhaseReady, EventCriticalFailure}:         pod.PhaseEmergencyBraking,
	{pod.PhaseAccelerating, EventCriticalFailure}:  pod.PhaseEmergencyBraking,
	{pod.PhaseDecelerating, EventCriticalFailure}:  pod.PhaseEmergencyBraking,
	{pod.PhaseRunComplete, EventCriticalFailure}:   pod.PhaseEmergencyBraking,
	{pod.PhaseExiting, EventCriticalFailure}:       pod.PhaseEmergencyBraking,
}

// Defined reports whether (phase, event) has a transition in the table.
// Exposed so tests can sweep the full pair space.
func Defined(phase pod.Phase, event Event) bool {
	_, ok := transitions[transitionKey{phase, event}]
	return ok
}

// Machine owns the current pod phase. Apply is safe for concurrent use;
// the published phase lives in the shared store.
type Machine struct {
	mu              sync.Mutex
	phase           pod.Phase
	criticalFailure bool

	store *pod.Store
}

// New returns a machine in the Idle phase and publishes that phase to
// the store.
func New(store *pod.Store) *Machine {
	m := &Machine{phase: pod.PhaseIdle, store: store}
	m.publish()
	return m
}

// Phase returns the current phase.
func (m *Machine) Phase() pod.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// CriticalFailure reports whether a critical failure has been latched.
func (m *Machine) CriticalFailure() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.criticalFailure
}

// Apply feeds one event to the machine. It returns the phase in effect
// afterwards and whether a transition happened. Events with no defined
// transition for the current phase are silent no-ops.
func (m *Machine) Apply(event Event) (pod.Phase, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := transitions[transitionKey{m.phase, event}]
	if !ok {
		return m.phase, false
	}

	log.Printf("statemachine: %s -> %s on %s", m.phase, next, event)
	m.phase = next
	if event == EventCriticalFailure {
		m.criticalFailure = true
	}
	if next == pod.PhaseIdle {
		// Full cycle reset.
		m.criticalFailure = false
	}
	m.publish()
	return m.phase, true
}

func (m *Machine) publish() {
	if m.store == nil {
		return
	}
	m.store.SetStateMachine(pod.StateMachine{
		Phase:           m.phase,
		CriticalFailure: m.criticalFailure,
	})
}
