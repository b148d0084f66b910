package pod

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore()

	nav := Navigation{
		Acceleration:    r3.Vec{X: 1.5},
		Velocity:        r3.Vec{X: 12},
		Displacement:    r3.Vec{X: 300, Y: 0.01},
		BrakingDistance: 3,
		State:           NavOperational,
	}
	s.SetNavigation(nav)
	assert.Equal(t, nav, s.Navigation())

	sensors := Sensors{
		IMUs: []IMUReading{
			{Time: time.Unix(10, 0), Accel: r3.Vec{Z: 9.81}, Gyro: r3.Vec{X: 0.01}},
			{Time: time.Unix(10, 0), Accel: r3.Vec{Z: 9.79}},
		},
		Proximities: []ProximityReading{{Time: time.Unix(10, 0), Distance: 0.05}},
		Stripes:     StripeCount{Time: time.Unix(10, 0), Count: 7},
	}
	s.SetSensors(sensors)
	if diff := cmp.Diff(sensors, s.Sensors()); diff != "" {
		t.Fatalf("sensors round trip mismatch (-want +got):\n%s", diff)
	}

	motors := Motors{VelocityFL: 100, VelocityFR: 100, VelocityBL: 99, VelocityBR: 99, TorqueFL: 5}
	s.SetMotors(motors)
	assert.Equal(t, motors, s.Motors())

	batteries := Batteries{Packs: []BatteryReading{{Voltage: 48.2, Charge: 0.93, TemperatureC: 31}}}
	s.SetBatteries(batteries)
	assert.Equal(t, batteries, s.Batteries())

	sm := StateMachine{Phase: PhaseAccelerating}
	s.SetStateMachine(sm)
	assert.Equal(t, sm, s.StateMachine())
}

func TestStoreZeroValueReads(t *testing.T) {
	s := NewStore()
	assert.Equal(t, Navigation{}, s.Navigation())
	assert.Equal(t, PhaseIdle, s.StateMachine().Phase)
	assert.Empty(t, s.Sensors().IMUs)
}

// Mutating the slice handed to SetSensors after the call must not leak
// into the stored copy.
func TestStoreSensorsCopySemantics(t *testing.T) {
	s := NewStore()
	in := Sensors{IMUs: []IMUReading{{Accel: r3.Vec{Z: 9.81}}}}
	s.SetSensors(in)
	in.IMUs[0].Accel = r3.Vec{Z: -1}

	got := s.Sensors()
	require.Len(t, got.IMUs, 1)
	assert.Equal(t, r3.Vec{Z: 9.81}, got.IMUs[0].Accel)

	got.IMUs[0].Accel = r3.Vec{X: 42}
	assert.Equal(t, r3.Vec{Z: 9.81}, s.Sensors().IMUs[0].Accel)
}

// A busy writer on one substructure must not delay writers or readers
// of another: the guards are independent.
func TestStoreSubstructureGuardsIndependent(t *testing.T) {
	s := NewStore()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s.SetNavigation(Navigation{Velocity: r3.Vec{X: 1}})
				_ = s.Navigation()
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5000; i++ {
			s.SetMotors(Motors{VelocityFL: float64(i)})
			_ = s.Motors()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("motor writes starved by navigation traffic")
	}
	close(stop)
	wg.Wait()
}
