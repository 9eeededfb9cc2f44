package swarmnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/marecchia-io/node/pkg/registry"
)

// Loop is the single cooperative task (C5) that owns the composed
// behaviour handle and the segment-request registry. It is the sole
// mutator of both, following §5's single-mutator discipline: every
// sub-component only ever writes tagged events to behaviour.events, and
// every command arrives serialized on cmds.
type Loop struct {
	host      host.Host
	behaviour *behaviour
	registry  *registry.Registry

	namespace string
	cookie    []byte

	cmds    chan Command
	log     *slog.Logger
	metrics *Metrics

	dialSinks   map[peer.ID]chan Result[struct{}]
	dialResults chan dialResult

	// dialSem bounds the number of Connect calls in flight at once,
	// this loop's realization of swarm.dial_concurrency: handleDial and
	// dialDiscovered both acquire a slot before dialing and release it
	// when Connect returns, inside their own goroutine, so the limit
	// never blocks the loop's own select.
	dialSem chan struct{}
}

// dialResult is how a dial goroutine (spawned by handleDial, off the
// loop's own goroutine so a slow/unreachable peer never stalls command
// or event processing) reports back to the loop. The loop is still the
// only goroutine that ever reads or writes dialSinks, preserving §5's
// single-mutator discipline even though the blocking Connect call
// itself runs elsewhere.
type dialResult struct {
	peer peer.ID
	err  error
}

// dialResultBuffer tolerates a burst of concurrent dials (an explicit
// Command::Dial racing with several rendezvous/mDNS discoveries)
// completing before the loop gets back around to its select.
const dialResultBuffer = 16

func newLoop(h host.Host, b *behaviour, namespace string, registryCapacity int, cmds chan Command, metrics *Metrics) *Loop {
	return newLoopWithDialConcurrency(h, b, namespace, registryCapacity, cmds, metrics, defaultDialConcurrency)
}

// defaultDialConcurrency matches config.Config.DialConcurrency's own
// fallback, for callers (tests, mostly) that construct a Loop directly
// instead of through Construct.
const defaultDialConcurrency = 5

func newLoopWithDialConcurrency(h host.Host, b *behaviour, namespace string, registryCapacity int, cmds chan Command, metrics *Metrics, dialConcurrency int) *Loop {
	if dialConcurrency < 1 {
		dialConcurrency = 1
	}
	return &Loop{
		host:        h,
		behaviour:   b,
		registry:    registry.New(registryCapacity),
		namespace:   namespace,
		cmds:        cmds,
		log:         slog.With("component", "swarmnet.Loop", "namespace", namespace),
		metrics:     metrics,
		dialSinks:   make(map[peer.ID]chan Result[struct{}]),
		dialResults: make(chan dialResult, dialResultBuffer),
		dialSem:     make(chan struct{}, dialConcurrency),
	}
}

// Run is the direct Go analogue of the rust EventLoop::run's
// futures::select! — a select over the command channel and the
// composed-behaviour event channel, terminating when either producer
// closes. It blocks until ctx is cancelled, a Quit command is handled,
// or either producer closes.
func (l *Loop) Run(ctx context.Context) {
	defer l.drain()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-l.cmds:
			if !ok {
				return
			}
			if l.handleCommand(ctx, cmd) {
				return
			}
		case evt, ok := <-l.behaviour.events:
			if !ok {
				return
			}
			l.handleEvent(ctx, evt)
		case res := <-l.dialResults:
			l.handleDialResult(res)
		}
	}
}

// drain resolves every reply sink still held by the registry, and every
// pending dial ack, with ErrConnectionClosed, so awaiters observe the
// shutdown as that error rather than as a closed channel.
func (l *Loop) drain() {
	for _, sink := range l.registry.DrainAll() {
		sink <- registry.Result{Err: ErrConnectionClosed}
	}
	for _, sink := range l.dialSinks {
		sink <- Result[struct{}]{Err: ErrConnectionClosed}
	}
}

// handleCommand executes one Command and reports whether the loop
// should exit (true only for Quit).
func (l *Loop) handleCommand(ctx context.Context, cmd Command) bool {
	switch cmd.Kind {
	case CommandDial:
		l.handleDial(ctx, cmd)
	case CommandProvideSegment:
		l.handleProvideSegment(ctx, cmd)
	case CommandRequestSegment:
		l.handleRequestSegment(ctx, cmd)
	case CommandQuit:
		l.log.Info("shutting down the network event loop")
		if cmd.QuitAck != nil {
			cmd.QuitAck <- Result[struct{}]{}
		}
		return true
	}
	return false
}

// handleDial composes the final multiaddress by appending /p2p/<peer>
// and starts the actual Connect off the loop's own goroutine: §5's
// suspension points are the next command, the next event, and delivery
// into the application's sink — a blocking Connect call has no business
// running inline here, since it would stall every other command and
// every other network event until the dial/handshake resolved. The ack
// channel is parked in dialSinks, keyed by peer, and the loop itself is
// the only goroutine that ever reads or writes that map; the dialing
// goroutine only ever reports back over dialResults.
func (l *Loop) handleDial(ctx context.Context, cmd Command) {
	addr := addrWithPeer(cmd.Addr, cmd.PeerID)
	l.log.Info("dialing peer", "peer", cmd.PeerID, "addr", addr)

	if cmd.DialAck != nil {
		l.dialSinks[cmd.PeerID] = cmd.DialAck
	}

	go func() {
		select {
		case l.dialSem <- struct{}{}:
			defer func() { <-l.dialSem }()
		case <-ctx.Done():
			return
		}

		ai := peer.AddrInfo{ID: cmd.PeerID, Addrs: []ma.Multiaddr{addr}}
		err := l.host.Connect(ctx, ai)
		select {
		case l.dialResults <- dialResult{peer: cmd.PeerID, err: err}:
		case <-ctx.Done():
		}
	}()
}

// handleDialResult resolves the ack channel parked by handleDial for
// res.peer, if one is still pending (it may already have been drained
// by Loop.drain on shutdown).
func (l *Loop) handleDialResult(res dialResult) {
	ack, ok := l.dialSinks[res.peer]
	if !ok {
		return
	}
	delete(l.dialSinks, res.peer)

	if res.err != nil {
		l.log.Error("dial failed", "peer", res.peer, "err", res.err)
		ack <- Result[struct{}]{Err: fmt.Errorf("%w: %w", ErrDialError, res.err)}
		return
	}
	l.log.Info("dial succeeded", "peer", res.peer)
	ack <- Result[struct{}]{}
}

// handleProvideSegment publishes on the topic named by the segment id.
// Failures are logged and dropped: ProvideSegment carries no reply sink.
func (l *Loop) handleProvideSegment(ctx context.Context, cmd Command) {
	if err := l.behaviour.pubsub.Provide(ctx, cmd.SegmentID, cmd.Data); err != nil {
		l.log.Error("publish failed", "segment", cmd.SegmentID, "err", err)
		return
	}
	l.log.Info("published segment", "segment", cmd.SegmentID, "bytes", len(cmd.Data))
	if l.metrics != nil {
		l.metrics.SegmentsProvided.Inc()
	}
}

// handleRequestSegment subscribes to the topic, then registers a
// pending entry; on subscribe failure it resolves the sink immediately
// with ErrSubscribe instead of registering anything.
func (l *Loop) handleRequestSegment(ctx context.Context, cmd Command) {
	if err := l.behaviour.pubsub.Subscribe(ctx, cmd.SegmentID); err != nil {
		l.log.Error("subscribe failed", "segment", cmd.SegmentID, "err", err)
		cmd.ReplySink <- Result[[]byte]{Err: ErrSubscribe}
		if l.metrics != nil {
			l.metrics.SegmentsRequested.WithLabelValues("subscribe_error").Inc()
		}
		return
	}
	l.log.Info("subscribed, awaiting segment", "segment", cmd.SegmentID)
	l.registry.Insert(cmd.SegmentID, adaptReplySink(cmd.ReplySink))
}

// handleEvent dispatches one composed-behaviour event by sub-behaviour,
// per spec.md §4.5's "Network event handling".
func (l *Loop) handleEvent(ctx context.Context, evt Event) {
	switch evt.Kind {
	case EventPing:
		l.handlePing(evt)
	case EventIdentify:
		l.log.Info("identified peer", "peer", evt.Peer, "addrs", evt.Addrs, "protocols", evt.Protocols)
	case EventRendezvousRegistered:
		l.log.Info("registered with rendezvous node", "namespace", evt.Namespace, "ttl", evt.TTL)
		if l.metrics != nil {
			l.metrics.RendezvousRegistrations.WithLabelValues("ok").Inc()
		}
		// Kick off continuous discovery now that registration has
		// succeeded; handleDiscovered/the DiscoverFailed case below
		// keep the chain going for the life of the loop, paced by the
		// client's own rate limiter.
		if l.behaviour.rendezvous != nil {
			l.behaviour.rendezvous.Discover(ctx, l.namespace, nil)
		}
	case EventRendezvousRegisterFailed:
		l.log.Error("rendezvous registration failed", "namespace", evt.Namespace, "err", evt.Err)
		if l.metrics != nil {
			l.metrics.RendezvousRegistrations.WithLabelValues("error").Inc()
		}
	case EventRendezvousDiscovered:
		l.handleDiscovered(ctx, evt)
	case EventRendezvousDiscoverFailed:
		l.log.Error("rendezvous discovery failed", "namespace", evt.Namespace, "err", evt.Err)
		if l.behaviour.rendezvous != nil {
			l.behaviour.rendezvous.Discover(ctx, l.namespace, l.cookie)
		}
	case EventRendezvousExpired:
		l.log.Info("rendezvous registration expired", "peer", evt.Peer)
	case EventRelayReservationAccepted:
		if evt.Err != nil {
			l.log.Error("relay reservation failed", "relay", evt.Peer, "err", evt.Err)
		} else {
			l.log.Info("relay reservation accepted", "relay", evt.Peer, "renewal", evt.Renewal)
		}
	case EventRelayInboundCircuit:
		l.log.Info("inbound circuit established", "peer", evt.Peer)
	case EventRelayOutboundCircuit:
		l.log.Info("outbound circuit established", "relay", evt.Peer)
	case EventPubSubMessage:
		l.handlePubSubMessage(evt)
	case EventPubSubSubscribed, EventPubSubUnsubscribed:
		l.log.Info("pubsub subscription change", "topic", evt.Topic, "peer", evt.Peer)
	case EventPubSubUnsupportedRemote:
		l.log.Warn("peer does not support pubsub, disconnecting", "peer", evt.Peer)
		_ = l.host.Network().ClosePeer(evt.Peer)
	}
}

func (l *Loop) handlePing(evt Event) {
	if evt.Err != nil {
		l.log.Warn("ping failed, disconnecting", "peer", evt.Peer, "err", evt.Err)
		l.behaviour.liveness.Unwatch(evt.Peer)
		_ = l.host.Network().ClosePeer(evt.Peer)
		if l.metrics != nil {
			l.metrics.PingFailuresTotal.Inc()
		}
		return
	}
	l.log.Debug("ping succeeded", "peer", evt.Peer, "rtt", evt.RTT)
	if l.metrics != nil {
		l.metrics.PingRTTSeconds.Observe(evt.RTT.Seconds())
	}
}

// handleDiscovered updates the rolling cookie, dials every advertised
// address of every returned registration per §4.5's "for each returned
// record, for each advertised address, dial addr/p2p/<peer>" policy,
// and queues the next Discover call so discovery keeps running for the
// life of the loop, rather than as a single one-shot query.
func (l *Loop) handleDiscovered(ctx context.Context, evt Event) {
	l.cookie = evt.Cookie
	l.log.Info("discovered peers", "count", len(evt.Registrations))
	if l.metrics != nil {
		l.metrics.DiscoveredPeersTotal.Add(float64(len(evt.Registrations)))
	}

	for _, reg := range evt.Registrations {
		if reg.Peer == l.host.ID() {
			continue
		}
		for _, addr := range reg.Addrs {
			dialAddr := addrWithPeer(addr, reg.Peer)
			l.log.Info("dialing discovered peer", "peer", reg.Peer, "addr", dialAddr)
			go l.dialDiscovered(ctx, reg.Peer, dialAddr)
		}
	}

	if l.behaviour.rendezvous != nil {
		l.behaviour.rendezvous.Discover(ctx, l.namespace, l.cookie)
	}
}

// dialDiscovered connects to a peer surfaced by rendezvous discovery in
// its own goroutine, so a slow or unreachable peer can never stall the
// loop, just as handleDial does for an explicit Command::Dial (see
// handleDial's doc comment). It shares handleDial's
// dialSem, so rendezvous-driven dials and explicit Command::Dial calls
// count against the same dial_concurrency budget.
func (l *Loop) dialDiscovered(ctx context.Context, p peer.ID, addr ma.Multiaddr) {
	select {
	case l.dialSem <- struct{}{}:
		defer func() { <-l.dialSem }()
	case <-ctx.Done():
		return
	}

	ai := peer.AddrInfo{ID: p, Addrs: []ma.Multiaddr{addr}}
	if err := l.host.Connect(ctx, ai); err != nil {
		l.log.Warn("dial to discovered peer failed", "peer", p, "err", err)
		return
	}
	l.behaviour.liveness.Watch(ctx, p)
}

// handlePubSubMessage resolves any pending registry entry for the
// message's topic with the payload, per the round-trip law: the first
// arriving message satisfies the request and removes the entry.
func (l *Loop) handlePubSubMessage(evt Event) {
	sink, ok := l.registry.Remove(evt.Topic)
	if !ok {
		return
	}
	sink <- registry.Result{Data: evt.Data}
	l.behaviour.pubsub.Unsubscribe(evt.Topic)
	if l.metrics != nil {
		l.metrics.SegmentsRequested.WithLabelValues("resolved").Inc()
	}
}

// adaptReplySink bridges command.go's Result[[]byte] reply sinks to
// registry.Sink's own Result type, since the registry package is
// generic-free and predates this command layer's addition of Result[T].
func adaptReplySink(sink chan Result[[]byte]) registry.Sink {
	bridge := make(chan registry.Result, 1)
	go func() {
		res := <-bridge
		sink <- Result[[]byte]{Value: res.Data, Err: translateRegistryErr(res.Err)}
	}()
	return bridge
}

// translateRegistryErr maps registry.ErrTimeout (eviction) onto
// swarmnet's own typed error, and passes through ErrConnectionClosed as
// sent directly by Loop.drain, so façade callers only ever see
// swarmnet errors.
func translateRegistryErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrTimeout):
		return ErrRequestTimeout
	default:
		return err
	}
}
