package swarmnet

import (
	"context"
	"testing"
	"time"
)

func TestLivenessMonitor_WatchReportsSuccess(t *testing.T) {
	hostA := newTestHost(t)
	hostB := newTestHost(t)
	connectHosts(t, hostA, hostB)

	newLivenessMonitor(hostB, 50*time.Millisecond, time.Second) // responder side needs the ping service registered too

	mon := newLivenessMonitor(hostA, 30*time.Millisecond, time.Second)
	mon.events = make(chan Event, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	mon.Watch(ctx, hostB.ID())

	select {
	case evt := <-mon.events:
		if evt.Kind != EventPing {
			t.Fatalf("kind = %v, want EventPing", evt.Kind)
		}
		if evt.Err != nil {
			t.Fatalf("unexpected ping error: %v", evt.Err)
		}
		if evt.Peer != hostB.ID() {
			t.Fatalf("peer = %s, want %s", evt.Peer, hostB.ID())
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for ping event")
	}
}

func TestLivenessMonitor_Unwatch(t *testing.T) {
	hostA := newTestHost(t)
	mon := newLivenessMonitor(hostA, time.Hour, time.Hour)
	mon.events = make(chan Event, 1)

	ctx := context.Background()
	mon.Watch(ctx, hostA.ID())
	if len(mon.cancels) != 1 {
		t.Fatalf("expected one watched peer, got %d", len(mon.cancels))
	}

	mon.Unwatch(hostA.ID())
	if len(mon.cancels) != 0 {
		t.Fatalf("expected zero watched peers after unwatch, got %d", len(mon.cancels))
	}

	// Unwatching an untracked peer is a no-op, not a panic.
	mon.Unwatch(hostA.ID())
}
