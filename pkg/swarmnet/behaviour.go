package swarmnet

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// EventKind tags the variant carried by an Event. rust-libp2p's
// NetworkBehaviour derive flattens five sub-behaviours into one
// generated enum; Go has no derive macro, so the composed behaviour
// funnels every sub-component's output onto one channel of this
// explicit tagged union instead.
type EventKind int

const (
	EventPing EventKind = iota
	EventIdentify
	EventRendezvousRegistered
	EventRendezvousRegisterFailed
	EventRendezvousDiscovered
	EventRendezvousDiscoverFailed
	EventRendezvousExpired
	EventRelayReservationAccepted
	EventRelayInboundCircuit
	EventRelayOutboundCircuit
	EventPubSubMessage
	EventPubSubSubscribed
	EventPubSubUnsubscribed
	EventPubSubUnsupportedRemote
)

// Event is the single normalized shape every sub-component writes to
// the shared channel. Only the fields relevant to Kind are populated;
// this mirrors the rust enum's per-variant payload without needing a
// Go sum type.
type Event struct {
	Kind EventKind

	Peer peer.ID
	Err  error

	// Ping
	RTT time.Duration

	// Identify
	Addrs     []ma.Multiaddr
	Protocols []string

	// Rendezvous
	TTL        int64
	Namespace  string
	Cookie     []byte
	Registrations []RendezvousRegistration

	// Relay
	Renewal bool
	Limit   uint32

	// PubSub
	Topic string
	Data  []byte
}

// RendezvousRegistration is one entry of a Discovered event's
// registration list: a peer and the addresses it advertised.
type RendezvousRegistration struct {
	Peer  peer.ID
	Addrs []ma.Multiaddr
}

// behaviour aggregates the five sub-components (C2) behind a single
// event channel. It owns none of the mutable peer/request state — that
// belongs to the event loop (§5 single-mutator discipline) — it only
// starts/stops the sub-components and gives the loop somewhere to read
// their events from.
type behaviour struct {
	events chan Event

	liveness   *livenessMonitor
	identify   *identifyService
	rendezvous *rendezvousClient
	relay      *relayClient
	pubsub     *pubsubClient
}

// newBehaviour wires the five sub-components onto one shared channel.
// The channel is unbuffered by design: every sub-component send blocks
// until the loop is ready, preserving arrival order without a separate
// queue.
func newBehaviour(liveness *livenessMonitor, identify *identifyService, rendezvous *rendezvousClient, relay *relayClient, pubsub *pubsubClient) *behaviour {
	events := make(chan Event)
	liveness.events = events
	identify.events = events
	rendezvous.events = events
	relay.events = events
	pubsub.events = events

	return &behaviour{
		events:     events,
		liveness:   liveness,
		identify:   identify,
		rendezvous: rendezvous,
		relay:      relay,
		pubsub:     pubsub,
	}
}
