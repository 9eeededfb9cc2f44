package swarmnet

import (
	"context"
	"fmt"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marecchia-io/node/internal/config"
	"github.com/marecchia-io/node/internal/identity"
	"github.com/marecchia-io/node/pkg/segment"
)

// commandBufferSize is the Facade's outbound command channel capacity
// (§4.4/§5): up to this many commands can be queued without blocking the
// caller; once it is full, senders wait for the loop to catch up.
const commandBufferSize = 20

// discoverQPS paces repeated rendezvous Discover calls so a busy
// namespace does not hammer the rendezvous node.
const discoverQPS = 1.0

// Facade is the public handle returned by Construct, wrapping a shared,
// cloneable-by-value command channel (§4.4). Dial, ProvideSegment,
// RequestSegment and Quit each enqueue one Command; all but
// ProvideSegment then block on its reply sink, mirroring the rust
// client's async methods without exposing any loop-internal state.
type Facade struct {
	host    host.Host
	cmds    chan Command
	metrics *Metrics
	reg     *prometheus.Registry

	cancel context.CancelFunc
}

// Metrics returns the Prometheus counters/gauges this node updates as it
// runs, registered against Facade's own Registry.
func (f *Facade) Metrics() *Metrics { return f.metrics }

// Registry returns the Prometheus registry backing Metrics, for a
// caller to serve on an HTTP handler.
func (f *Facade) Registry() *prometheus.Registry { return f.reg }

// Construct validates the namespace, builds the transport-stack host,
// wires the five sub-components into one composed behaviour, and
// starts the event loop as a background goroutine. The returned Facade
// is safe for concurrent use by multiple callers, per spec.md's
// façade surface table.
func Construct(ctx context.Context, cfg *config.Config) (*Facade, error) {
	ns, err := segment.NewNamespace(cfg.Namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadNamespace, err)
	}

	priv, err := identity.LoadOrCreateIdentity(cfg.Identity.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: identity: %v", ErrConfigError, err)
	}

	h, err := buildHost(cfg, priv)
	if err != nil {
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(ctx)

	liveness := newLivenessMonitor(h, cfg.PingInterval(), cfg.PingTimeout())

	idSvc, err := newIdentifyService(h)
	if err != nil {
		cancel()
		h.Close()
		return nil, fmt.Errorf("%w: identify: %v", ErrConfigError, err)
	}

	rp := cfg.RendezvousPeerID()
	rendezvous := newRendezvousClient(h, rp, discoverQPS)
	rendezvous.start(loopCtx)

	relay := newRelayClient(h, peer.AddrInfo{ID: rp, Addrs: []ma.Multiaddr{cfg.RendezvousAddr()}})

	pubsubCli, err := newPubsubClient(loopCtx, h, cfg.MaxInboundNegotiating())
	if err != nil {
		cancel()
		idSvc.Close()
		h.Close()
		return nil, fmt.Errorf("%w: pubsub: %v", ErrConfigError, err)
	}

	b := newBehaviour(liveness, idSvc, rendezvous, relay, pubsubCli)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	cmds := make(chan Command, commandBufferSize)
	loop := newLoopWithDialConcurrency(h, b, ns.String(), cfg.RegistryCapacity(), cmds, metrics, cfg.DialConcurrency())

	go idSvc.Run(loopCtx)
	go loop.Run(loopCtx)

	rendezvous.Register(loopCtx, ns.String(), RendezvousTTL)
	if rp != "" {
		go relay.Reserve(loopCtx)
	}
	if cfg.Discovery.IsLANDiscoveryEnabled() {
		disc, err := newMDNSDiscovery(h, ns.String(), cmds)
		if err != nil {
			loop.log.Warn("mdns discovery disabled", "err", err)
		} else {
			disc.Start()
		}
	}

	return &Facade{host: h, cmds: cmds, metrics: metrics, reg: reg, cancel: cancel}, nil
}

// HostID returns the node's own peer id.
func (f *Facade) HostID() peer.ID { return f.host.ID() }

// Dial connects to a peer at addr, composing /p2p/<id> if not already
// present, and blocks until the attempt succeeds or fails.
func (f *Facade) Dial(ctx context.Context, p peer.ID, addr ma.Multiaddr) error {
	ack := make(chan Result[struct{}], 1)
	cmd := Command{Kind: CommandDial, PeerID: p, Addr: addr, DialAck: ack}
	if err := f.send(ctx, cmd); err != nil {
		return err
	}
	select {
	case res := <-ack:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProvideSegment publishes data under segmentID, fire-and-forget per
// spec.md §4.5 (no reply sink; failures are logged by the loop).
func (f *Facade) ProvideSegment(ctx context.Context, segmentID string, data []byte) error {
	return f.send(ctx, Command{Kind: CommandProvideSegment, SegmentID: segmentID, Data: data})
}

// RequestSegment subscribes to segmentID's topic and blocks until the
// first message arrives, the request registry evicts the pending entry
// (Timeout), or the connection closes.
func (f *Facade) RequestSegment(ctx context.Context, segmentID string) ([]byte, error) {
	sink := make(chan Result[[]byte], 1)
	cmd := Command{Kind: CommandRequestSegment, SegmentID: segmentID, ReplySink: sink}
	if err := f.send(ctx, cmd); err != nil {
		return nil, err
	}
	select {
	case res := <-sink:
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Quit asks the event loop to drain and exit, waits for its
// acknowledgment, then tears down the host.
func (f *Facade) Quit(ctx context.Context) error {
	ack := make(chan Result[struct{}], 1)
	err := f.send(ctx, Command{Kind: CommandQuit, QuitAck: ack})
	if err == nil {
		select {
		case <-ack:
		case <-ctx.Done():
		}
	}
	f.cancel()
	return f.host.Close()
}

func (f *Facade) send(ctx context.Context, cmd Command) error {
	select {
	case f.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
