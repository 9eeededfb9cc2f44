package swarmnet

import (
	"context"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/protocol/circuitv2/client"
)

// relayClient wraps circuitv2/client.Reserve to obtain and renew a
// relay reservation, surfacing lifecycle events onto the shared
// channel. Reservation renewal itself is handled by go-libp2p's
// AutoRelay (wired at host construction via
// libp2p.EnableAutoRelayWithStaticRelays in transport.go); this type
// only reports the initial reservation outcome. No inbound or outbound
// circuit events are emitted.
type relayClient struct {
	host   host.Host
	relay  peer.AddrInfo
	events chan Event
}

func newRelayClient(h host.Host, relay peer.AddrInfo) *relayClient {
	return &relayClient{host: h, relay: relay}
}

// Reserve requests a circuit reservation on the configured relay and
// reports the outcome as a RelayEvent.
func (c *relayClient) Reserve(ctx context.Context) {
	reservation, err := client.Reserve(ctx, c.host, c.relay)
	if err != nil {
		c.events <- Event{Kind: EventRelayReservationAccepted, Peer: c.relay.ID, Err: err}
		return
	}
	c.events <- Event{
		Kind:    EventRelayReservationAccepted,
		Peer:    c.relay.ID,
		Renewal: !reservation.Expiration.IsZero(),
		Limit:   uint32(reservation.LimitData),
	}
}
