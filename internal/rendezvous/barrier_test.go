package rendezvous

import (
	"context"
	"testing"
	"time"
)

func TestNew_RejectsBadPartyCount(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for parties=0")
	}
	if _, err := New(-3); err == nil {
		t.Fatal("expected error for negative parties")
	}
}

func TestAwait_SinglePartyPassesImmediately(t *testing.T) {
	b, err := New(1)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := b.Await(context.Background()); err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	if !b.Opened() {
		t.Fatal("expected barrier opened")
	}
}

// Neither of two parties makes progress until both have arrived.
func TestAwait_TwoPartyRendezvous(t *testing.T) {
	b, err := New(2)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	first := make(chan error, 1)
	go func() {
		first <- b.Await(context.Background())
	}()

	// The first arrival must stay blocked while it is alone.
	select {
	case err := <-first:
		t.Fatalf("first party unblocked alone: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	if b.Opened() {
		t.Fatal("barrier opened with one party")
	}

	if err := b.Await(context.Background()); err != nil {
		t.Fatalf("second Await() error: %v", err)
	}
	select {
	case err := <-first:
		if err != nil {
			t.Fatalf("first Await() error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("first party never released")
	}
}

func TestAwait_AfterOpenIsIdempotent(t *testing.T) {
	b, err := New(1)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := b.Await(context.Background()); err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	// Later arrivals fall through without blocking or error.
	for i := 0; i < 3; i++ {
		if err := b.Await(context.Background()); err != nil {
			t.Fatalf("Await() after open error: %v", err)
		}
	}
}

func TestAwait_CancelWithdrawsArrival(t *testing.T) {
	b, err := New(2)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- b.Await(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-errCh; err != context.Canceled {
		t.Fatalf("Await() error=%v want context.Canceled", err)
	}

	// The withdrawn arrival must not count: a lone fresh arrival still blocks.
	fresh := make(chan error, 1)
	go func() { fresh <- b.Await(context.Background()) }()
	select {
	case err := <-fresh:
		t.Fatalf("lone party unblocked after withdrawn arrival: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	// Complete the rendezvous so the goroutine exits.
	if err := b.Await(context.Background()); err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	if err := <-fresh; err != nil {
		t.Fatalf("fresh Await() error: %v", err)
	}
}

func TestAwait_NilBarrier(t *testing.T) {
	var b *Barrier
	if err := b.Await(context.Background()); err == nil {
		t.Fatal("expected error from nil barrier")
	}
	if b.Opened() {
		t.Fatal("nil barrier cannot be opened")
	}
}
