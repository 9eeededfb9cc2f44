package swarmnet

import (
	"context"

	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/protocol/identify"
)

// identifyService wraps go-libp2p's identify.NewIDService, configured
// with the exact literal protocol version the wire layer (C6) specifies,
// and republishes EvtPeerIdentificationCompleted as a tagged Event.
type identifyService struct {
	svc    *identify.IDService
	events chan Event

	sub event.Subscription
}

func newIdentifyService(h host.Host) (*identifyService, error) {
	svc, err := identify.NewIDService(h, identify.ProtocolVersion(IdentifyProtocolID))
	if err != nil {
		return nil, err
	}

	sub, err := h.EventBus().Subscribe(new(event.EvtPeerIdentificationCompleted))
	if err != nil {
		svc.Close()
		return nil, err
	}

	return &identifyService{svc: svc, sub: sub}, nil
}

// Run forwards identification-completed events onto the shared channel
// until ctx is cancelled.
func (s *identifyService) Run(ctx context.Context) {
	defer s.sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-s.sub.Out():
			if !ok {
				return
			}
			evt, ok := raw.(event.EvtPeerIdentificationCompleted)
			if !ok {
				continue
			}
			out := Event{
				Kind:      EventIdentify,
				Peer:      evt.Peer,
				Addrs:     evt.ListenAddrs,
				Protocols: protocolStrings(evt.Protocols),
			}
			select {
			case s.events <- out:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *identifyService) Close() error {
	return s.svc.Close()
}

func protocolStrings(protos []protocol.ID) []string {
	out := make([]string, 0, len(protos))
	for _, p := range protos {
		out = append(out, string(p))
	}
	return out
}
