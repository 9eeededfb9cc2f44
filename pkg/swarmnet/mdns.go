package swarmnet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/libp2p/zeroconf/v2"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// mdnsServiceTag namespaces the mDNS service type by namespace, so two
// independent namespaces running on the same LAN segment never discover
// each other.
const mdnsServiceTag = "_marecchia"

// mdnsDiscovery is the LAN-discovery supplement (§6.3, NEW): it never
// touches the registry or behaviour state directly, only enqueuing Dial
// commands on the command channel, so it cannot violate the
// single-mutator discipline.
type mdnsDiscovery struct {
	host      host.Host
	namespace string
	cmds      chan Command
	log       *slog.Logger

	server *zeroconf.Server
}

func newMDNSDiscovery(h host.Host, namespace string, cmds chan Command) (*mdnsDiscovery, error) {
	return &mdnsDiscovery{
		host:      h,
		namespace: namespace,
		cmds:      cmds,
		log:       slog.With("component", "swarmnet.mdns", "namespace", namespace),
	}, nil
}

// Start advertises this host on the LAN and begins browsing for peers in
// the same namespace, dialing each one discovered. Browsing runs under
// context.Background(), so it is not stopped by the façade's Quit.
func (d *mdnsDiscovery) Start() {
	port := 4242
	txt := []string{"peer=" + d.host.ID().String()}

	server, err := zeroconf.Register(
		d.host.ID().String(),
		serviceType(d.namespace),
		"local.",
		port,
		txt,
		nil,
	)
	if err != nil {
		d.log.Error("mdns register failed", "err", err)
		return
	}
	d.server = server

	go d.browse(context.Background())
}

func (d *mdnsDiscovery) browse(ctx context.Context) {
	entries := make(chan *zeroconf.ServiceEntry, 8)
	go func() {
		for entry := range entries {
			d.handleEntry(ctx, entry)
		}
	}()

	if err := zeroconf.Browse(ctx, serviceType(d.namespace), "local.", entries); err != nil {
		d.log.Error("mdns browse failed", "err", err)
	}
}

func (d *mdnsDiscovery) handleEntry(ctx context.Context, entry *zeroconf.ServiceEntry) {
	p, err := peer.Decode(entry.Instance)
	if err != nil || p == d.host.ID() {
		return
	}
	for _, ip := range entry.AddrIPv4 {
		addr, err := ma.NewMultiaddr(fmt.Sprintf("/ip4/%s/tcp/%d", ip, entry.Port))
		if err != nil {
			continue
		}
		ack := make(chan Result[struct{}], 1)
		select {
		case d.cmds <- Command{Kind: CommandDial, PeerID: p, Addr: addr, DialAck: ack}:
		case <-ctx.Done():
			return
		}
	}
}

// Close stops LAN advertisement.
func (d *mdnsDiscovery) Close() {
	if d.server != nil {
		d.server.Shutdown()
	}
}

func serviceType(namespace string) string {
	clean := strings.ReplaceAll(namespace, ".", "-")
	return mdnsServiceTag + "-" + clean + "._tcp"
}
