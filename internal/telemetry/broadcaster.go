// Package telemetry streams controller state snapshots to a ground
// station over UDP as newline-delimited JSON.
package telemetry

import (
	"fmt"
	"net"
)

// Broadcaster is a connected UDP sender.
type Broadcaster struct {
	dest string
	conn *net.UDPConn
}

// NewBroadcaster dials the destination ("host:port").
func NewBroadcaster(dest string) (*Broadcaster, error) {
	addr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &Broadcaster{dest: dest, conn: conn}, nil
}

// Send transmits one datagram. Empty payloads are dropped.
func (b *Broadcaster) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := b.conn.Write(payload)
	return err
}

// Close releases the socket.
func (b *Broadcaster) Close() error {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
