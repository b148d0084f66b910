package telemetry

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"podctl/internal/pod"
)

type captureSender struct {
	payloads [][]byte
}

func (c *captureSender) Send(payload []byte) error {
	c.payloads = append(c.payloads, payload)
	return nil
}

func TestPublisherFrame(t *testing.T) {
	store := pod.NewStore()
	store.SetStateMachine(pod.StateMachine{Phase: pod.PhaseAccelerating})
	store.SetNavigation(pod.Navigation{
		Velocity:        r3.Vec{X: 42.5},
		Displacement:    r3.Vec{X: 310},
		BrakingDistance: 37.6,
		State:           pod.NavOperational,
	})
	store.SetMotors(pod.Motors{VelocityFL: 43})
	store.SetBatteries(pod.Batteries{Packs: []pod.BatteryReading{{Charge: 0.8}}})

	out := &captureSender{}
	p, err := NewPublisher(store, out, time.Second, 1)
	if err != nil {
		t.Fatalf("NewPublisher() error: %v", err)
	}
	if err := p.publishOnce(time.Now()); err != nil {
		t.Fatalf("publishOnce() error: %v", err)
	}
	if len(out.payloads) != 1 {
		t.Fatalf("payloads=%d want 1", len(out.payloads))
	}

	var f Frame
	if err := json.Unmarshal(out.payloads[0], &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if f.Phase != "accelerating" || f.NavState != "operational" {
		t.Fatalf("frame=%+v", f)
	}
	if f.Velocity != 42.5 || f.Displacement != 310 || f.BrakingDistance != 37.6 {
		t.Fatalf("kinematics=%+v", f)
	}
	if f.MotorVelocity != 43 || f.BatteryCharge != 0.8 {
		t.Fatalf("actuation=%+v", f)
	}
}

func TestPublisherNegativeAxis(t *testing.T) {
	store := pod.NewStore()
	store.SetNavigation(pod.Navigation{Velocity: r3.Vec{Y: -5}})

	out := &captureSender{}
	p, err := NewPublisher(store, out, time.Second, -2)
	if err != nil {
		t.Fatalf("NewPublisher() error: %v", err)
	}
	if got := p.frame(time.Now()).Velocity; got != 5 {
		t.Fatalf("velocity=%v want 5 on axis -2", got)
	}
}

func TestBroadcasterDelivers(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	b, err := NewBroadcaster(pc.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewBroadcaster() error: %v", err)
	}
	defer b.Close()

	if err := b.Send([]byte("ping\n")); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if got := string(buf[:n]); got != "ping\n" {
		t.Fatalf("got=%q want %q", got, "ping\n")
	}
}
