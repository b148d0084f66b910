package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"podctl/internal/pod"
)

// Frame is one telemetry datagram. Field names are part of the ground
// station protocol.
type Frame struct {
	Time            time.Time `json:"time"`
	Phase           string    `json:"phase"`
	CriticalFailure bool      `json:"critical_failure"`

	NavState        string  `json:"nav_state"`
	Velocity        float64 `json:"velocity"`
	Displacement    float64 `json:"displacement"`
	BrakingDistance float64 `json:"braking_distance"`

	MotorVelocity float64 `json:"motor_velocity"`

	BatteryCharge float64 `json:"battery_charge,omitempty"`
}

// sender is what the publisher needs from a broadcaster.
type sender interface {
	Send(payload []byte) error
}

// Publisher samples the shared store on a fixed interval and ships one
// frame per tick. ForwardAxis selects which estimate component is the
// direction of travel.
type Publisher struct {
	store       *pod.Store
	out         sender
	interval    time.Duration
	forwardAxis int
}

// NewPublisher wires a publisher to the store and a broadcaster.
func NewPublisher(store *pod.Store, out sender, interval time.Duration, forwardAxis int) (*Publisher, error) {
	if store == nil {
		return nil, fmt.Errorf("telemetry: store is nil")
	}
	if out == nil {
		return nil, fmt.Errorf("telemetry: sender is nil")
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if forwardAxis == 0 {
		forwardAxis = 1
	}
	return &Publisher{store: store, out: out, interval: interval, forwardAxis: forwardAxis}, nil
}

// Run publishes until ctx is done. Send failures are logged, not fatal:
// losing telemetry must never stop the pod.
func (p *Publisher) Run(ctx context.Context) error {
	if p == nil {
		return fmt.Errorf("telemetry: publisher is nil")
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.publishOnce(time.Now()); err != nil {
				log.Printf("telemetry: send failed: %v", err)
			}
		}
	}
}

func (p *Publisher) publishOnce(at time.Time) error {
	payload, err := json.Marshal(p.frame(at))
	if err != nil {
		return err
	}
	return p.out.Send(append(payload, '\n'))
}

func (p *Publisher) frame(at time.Time) Frame {
	sm := p.store.StateMachine()
	nav := p.store.Navigation()
	motors := p.store.Motors()
	batteries := p.store.Batteries()

	f := Frame{
		Time:            at,
		Phase:           sm.Phase.String(),
		CriticalFailure: sm.CriticalFailure,
		NavState:        nav.State.String(),
		Velocity:        axisComponent(nav.Velocity.X, nav.Velocity.Y, nav.Velocity.Z, p.forwardAxis),
		Displacement:    axisComponent(nav.Displacement.X, nav.Displacement.Y, nav.Displacement.Z, p.forwardAxis),
		BrakingDistance: nav.BrakingDistance,
		MotorVelocity:   motors.VelocityFL,
	}
	if len(batteries.Packs) > 0 {
		f.BatteryCharge = batteries.Packs[0].Charge
	}
	return f
}

func axisComponent(x, y, z float64, axis int) float64 {
	var v float64
	switch axis {
	case 1, -1:
		v = x
	case 2, -2:
		v = y
	case 3, -3:
		v = z
	}
	if axis < 0 {
		v = -v
	}
	return v
}
