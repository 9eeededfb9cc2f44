package swarmnet

import (
	"context"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	pingsvc "github.com/libp2p/go-libp2p/p2p/protocol/ping"
)

// livenessMonitor generalizes pkg/p2pnet/ping.go's PingPeer/doPing loop
// from a hand-rolled "ping\n"/"pong\n" stream protocol to go-libp2p's
// standard ping service, matching the interval/timeout pair the rust
// source configures on libp2p's ping::Behaviour (5s/10s). One goroutine
// runs per watched peer; the loop watches only peers it connects to
// through rendezvous discovery, so peers reached by an explicit Dial,
// by mDNS or by an inbound connection are not probed. A failed probe is
// reported once as a PingEvent and the goroutine exits (the loop
// disconnects; a later rendezvous-driven reconnect starts a fresh
// monitor).
type livenessMonitor struct {
	host     host.Host
	pingSvc  *pingsvc.PingService
	interval time.Duration
	timeout  time.Duration

	events chan Event

	mu      sync.Mutex
	cancels map[peer.ID]context.CancelFunc
}

func newLivenessMonitor(h host.Host, interval, timeout time.Duration) *livenessMonitor {
	return &livenessMonitor{
		host:     h,
		pingSvc:  pingsvc.NewPingService(h),
		interval: interval,
		timeout:  timeout,
		cancels:  make(map[peer.ID]context.CancelFunc),
	}
}

// Watch starts a monitor goroutine for p, if one is not already running.
func (m *livenessMonitor) Watch(ctx context.Context, p peer.ID) {
	m.mu.Lock()
	if _, ok := m.cancels[p]; ok {
		m.mu.Unlock()
		return
	}
	probeCtx, cancel := context.WithCancel(ctx)
	m.cancels[p] = cancel
	m.mu.Unlock()

	go m.run(probeCtx, p)
}

// Unwatch stops the monitor for p, if any (called on disconnect).
func (m *livenessMonitor) Unwatch(p peer.ID) {
	m.mu.Lock()
	cancel, ok := m.cancels[p]
	if ok {
		delete(m.cancels, p)
	}
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

func (m *livenessMonitor) run(ctx context.Context, p peer.ID) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.probe(ctx, p) {
				m.mu.Lock()
				delete(m.cancels, p)
				m.mu.Unlock()
				return
			}
		}
	}
}

// probe runs one ping RTT measurement and reports the result. It
// returns false when the probe failed (the caller stops watching).
func (m *livenessMonitor) probe(ctx context.Context, p peer.ID) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	result := <-m.pingSvc.Ping(probeCtx, p)
	if result.Error != nil {
		select {
		case m.events <- Event{Kind: EventPing, Peer: p, Err: result.Error}:
		case <-ctx.Done():
		}
		return false
	}

	select {
	case m.events <- Event{Kind: EventPing, Peer: p, RTT: result.RTT}:
	case <-ctx.Done():
	}
	return true
}
