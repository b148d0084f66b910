// Package rendezvous provides the one-shot synchronization point used to
// line up the navigation and motor-control goroutines at the
// calibration/operational boundary.
package rendezvous

import (
	"context"
	"fmt"
	"sync"
)

// Barrier blocks arriving parties until a fixed number of them have
// arrived, then releases them all at once.
//
// It supports exactly one rendezvous per run: once opened it stays
// open, and any later Await returns immediately. Construct a fresh
// Barrier for each run.
type Barrier struct {
	mu      sync.Mutex
	parties int
	arrived int
	opened  chan struct{}
}

// New returns a barrier for the given number of parties.
func New(parties int) (*Barrier, error) {
	if parties < 1 {
		return nil, fmt.Errorf("rendezvous: parties must be >= 1, got %d", parties)
	}
	return &Barrier{
		parties: parties,
		opened:  make(chan struct{}),
	}, nil
}

// Await registers the caller as one arrived party and blocks until all
// parties have arrived or ctx is done. If ctx is cancelled before the
// barrier opens the arrival is withdrawn, so a later retry counts
// again. After the barrier has opened, Await returns nil immediately.
func (b *Barrier) Await(ctx context.Context) error {
	if b == nil {
		return fmt.Errorf("rendezvous: barrier is nil")
	}

	b.mu.Lock()
	select {
	case <-b.opened:
		b.mu.Unlock()
		return nil
	default:
	}
	b.arrived++
	if b.arrived >= b.parties {
		close(b.opened)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	select {
	case <-b.opened:
		return nil
	case <-ctx.Done():
		b.mu.Lock()
		select {
		case <-b.opened:
			// Opened while we were cancelling; the rendezvous happened.
			b.mu.Unlock()
			return nil
		default:
			b.arrived--
			b.mu.Unlock()
			return ctx.Err()
		}
	}
}

// Opened reports whether the rendezvous has already happened.
func (b *Barrier) Opened() bool {
	if b == nil {
		return false
	}
	select {
	case <-b.opened:
		return true
	default:
		return false
	}
}
