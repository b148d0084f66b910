package pod

import "sync"

// Store is the single shared table through which the navigation,
// motor-control, and state-machine goroutines exchange data. Each
// substructure has its own guard, so traffic on one never blocks
// traffic on another. Getters return copies and setters replace the
// whole substructure; no lock is ever held across caller computation.
//
// Construct one Store at process start and pass it by handle to every
// component that needs it.
type Store struct {
	navMu sync.RWMutex
	nav   Navigation

	sensorsMu sync.RWMutex
	sensors   Sensors

	motorsMu sync.RWMutex
	motors   Motors

	batteriesMu sync.RWMutex
	batteries   Batteries

	smMu sync.RWMutex
	sm   StateMachine
}

func NewStore() *Store {
	return &Store{}
}

// Navigation returns a copy of the latest navigation snapshot.
func (s *Store) Navigation() Navigation {
	s.navMu.RLock()
	defer s.navMu.RUnlock()
	return s.nav
}

// SetNavigation atomically replaces the navigation snapshot. Only the
// navigation engine should call this.
func (s *Store) SetNavigation(nav Navigation) {
	s.navMu.Lock()
	defer s.navMu.Unlock()
	s.nav = nav
}

// Sensors returns a copy of the latest raw sensor bundle.
func (s *Store) Sensors() Sensors {
	s.sensorsMu.RLock()
	defer s.sensorsMu.RUnlock()
	return copySensors(s.sensors)
}

// SetSensors atomically replaces the raw sensor bundle.
func (s *Store) SetSensors(sensors Sensors) {
	cp := copySensors(sensors)
	s.sensorsMu.Lock()
	defer s.sensorsMu.Unlock()
	s.sensors = cp
}

// Motors returns a copy of the latest motor commands.
func (s *Store) Motors() Motors {
	s.motorsMu.RLock()
	defer s.motorsMu.RUnlock()
	return s.motors
}

// SetMotors atomically replaces the motor commands.
func (s *Store) SetMotors(motors Motors) {
	s.motorsMu.Lock()
	defer s.motorsMu.Unlock()
	s.motors = motors
}

// Batteries returns a copy of the latest battery state.
func (s *Store) Batteries() Batteries {
	s.batteriesMu.RLock()
	defer s.batteriesMu.RUnlock()
	return Batteries{Packs: append([]BatteryReading(nil), s.batteries.Packs...)}
}

// SetBatteries atomically replaces the battery state.
func (s *Store) SetBatteries(batteries Batteries) {
	cp := Batteries{Packs: append([]BatteryReading(nil), batteries.Packs...)}
	s.batteriesMu.Lock()
	defer s.batteriesMu.Unlock()
	s.batteries = cp
}

// StateMachine returns the current pod phase and critical-failure flag.
func (s *Store) StateMachine() StateMachine {
	s.smMu.RLock()
	defer s.smMu.RUnlock()
	return s.sm
}

// SetStateMachine atomically replaces the published machine state. Only
// the state machine should call this.
func (s *Store) SetStateMachine(sm StateMachine) {
	s.smMu.Lock()
	defer s.smMu.Unlock()
	s.sm = sm
}

func copySensors(in Sensors) Sensors {
	return Sensors{
		IMUs:        append([]IMUReading(nil), in.IMUs...),
		Proximities: append([]ProximityReading(nil), in.Proximities...),
		Stripes:     in.Stripes,
	}
}
