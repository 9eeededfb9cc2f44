package swarmnet

import (
	"fmt"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
	"github.com/libp2p/go-libp2p/p2p/muxer/yamux"
	"github.com/libp2p/go-libp2p/p2p/transport/webrtc"
	"github.com/libp2p/go-libp2p/p2p/transport/websocket"
	"github.com/libp2p/go-libp2p/p2p/transport/webtransport"

	"github.com/marecchia-io/node/internal/config"
	"github.com/marecchia-io/node/internal/identity"
)

// buildHost composes the transport stack (C3): browser-reachable base
// transports (secure WebSocket, WebRTC-direct, WebTransport), Noise-XX
// security, Yamux multiplexing, and relay transport, per the listen
// addresses and swarm knobs in cfg.
//
// max_inbound_negotiating and dial_concurrency have no 1:1 go-libp2p
// option; they are realized as counting semaphores elsewhere rather
// than here. dial_concurrency bounds Loop's own dial goroutines
// (eventloop.go's dialSem); max_inbound_negotiating bounds concurrent
// topic-subscribe negotiation in pubsubclient.go's negotiateSem. Only
// idle_connection_timeout maps onto a go-libp2p primitive directly
// (connmgr's grace period).
func buildHost(cfg *config.Config, priv identity.PrivKey) (host.Host, error) {
	cm, err := connmgr.NewConnManager(
		loPeers, hiPeers,
		connmgr.WithGracePeriod(cfg.IdleConnectionTimeout()),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: connmgr: %v", ErrConfigError, err)
	}

	opts := []libp2p.Option{
		libp2p.Identity(priv),
		libp2p.Transport(websocket.New),
		libp2p.Transport(webrtc.New),
		libp2p.Transport(webtransport.New),
		libp2p.Security(noise.ID, noise.New),
		libp2p.Muxer(yamux.ID, yamux.DefaultTransport),
		libp2p.ConnectionManager(cm),
		libp2p.EnableRelay(),
	}

	if addrs := cfg.Network.ListenAddresses; len(addrs) > 0 {
		opts = append(opts, libp2p.ListenAddrStrings(addrs...))
	}

	if len(cfg.StaticRelays()) > 0 {
		opts = append(opts, libp2p.EnableAutoRelayWithStaticRelays(cfg.StaticRelays()))
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListenError, err)
	}
	return h, nil
}

// loPeers/hiPeers are the connmgr low/high watermarks. The spec gives no
// peer-count knob, only the idle timeout; these are generous defaults
// matching the teacher's own unbounded-by-default posture.
const (
	loPeers = 64
	hiPeers = 256
)
