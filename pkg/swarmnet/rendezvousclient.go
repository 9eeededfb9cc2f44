package swarmnet

import (
	"context"

	"github.com/libp2p/go-libp2p-rendezvous"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// rendezvousClient wraps go-libp2p-rendezvous's synchronous Register/
// Discover RPCs and normalizes their results onto the shared event
// channel. The underlying library is request/response, not an event
// stream, so each call runs on its own goroutine under an errgroup.
// Each call runs under the ctx passed to Register/Discover; Close waits
// for every in-flight call to return. Facade.Quit cancels that ctx but
// does not call Close.
type rendezvousClient struct {
	client rendezvous.RendezvousClient
	rp     peer.ID

	events  chan Event
	limiter *rate.Limiter

	group  *errgroup.Group
	cancel context.CancelFunc
}

// newRendezvousClient constructs a client targeting the rendezvous node
// rp over h. discoverQPS paces repeated discovery queries so a busy
// namespace does not hammer the rendezvous node.
func newRendezvousClient(h host.Host, rp peer.ID, discoverQPS float64) *rendezvousClient {
	return &rendezvousClient{
		client:  rendezvous.NewRendezvousClient(h, rp),
		rp:      rp,
		limiter: rate.NewLimiter(rate.Limit(discoverQPS), 1),
	}
}

func (c *rendezvousClient) start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)
	c.cancel = cancel
	c.group = group
	_ = ctx
}

// Close waits for any in-flight Register/Discover goroutines to return;
// they stop once the ctx given to Register/Discover is cancelled.
func (c *rendezvousClient) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.group != nil {
		return c.group.Wait()
	}
	return nil
}

// Register performs exactly one registration attempt at startup, per
// the spec's "exactly one rendezvous registration attempt at startup"
// invariant; TTL refresh (if any) is driven by the server-supplied TTL,
// not by this method being called again on a timer.
func (c *rendezvousClient) Register(ctx context.Context, ns string, ttl int) {
	c.group.Go(func() error {
		actualTTL, err := c.client.Register(ctx, ns, ttl)
		if err != nil {
			select {
			case c.events <- Event{Kind: EventRendezvousRegisterFailed, Namespace: ns, Err: err}:
			case <-ctx.Done():
			}
			return nil
		}
		select {
		case c.events <- Event{Kind: EventRendezvousRegistered, Namespace: ns, TTL: int64(actualTTL)}:
		case <-ctx.Done():
		}
		return nil
	})
}

// Discover runs one discovery query scoped by the rolling cookie,
// rate-limited by discoverQPS.
func (c *rendezvousClient) Discover(ctx context.Context, ns string, cookie []byte) {
	c.group.Go(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil
		}
		regs, nextCookie, err := c.client.Discover(ctx, ns, 0, cookie)
		if err != nil {
			select {
			case c.events <- Event{Kind: EventRendezvousDiscoverFailed, Namespace: ns, Err: err}:
			case <-ctx.Done():
			}
			return nil
		}

		out := make([]RendezvousRegistration, 0, len(regs))
		for _, r := range regs {
			out = append(out, RendezvousRegistration{Peer: r.Peer.ID, Addrs: r.Peer.Addrs})
		}
		select {
		case c.events <- Event{Kind: EventRendezvousDiscovered, Namespace: ns, Cookie: nextCookie, Registrations: out}:
		case <-ctx.Done():
		}
		return nil
	})
}

// addrWithPeer appends /p2p/<peer> to addr unless it already ends in
// that component, per spec.md's Rendezvous/Discovered dial policy.
func addrWithPeer(addr ma.Multiaddr, p peer.ID) ma.Multiaddr {
	p2pSuffix, err := ma.NewComponent("p2p", p.String())
	if err != nil {
		return addr
	}
	if last, err := addr.ValueForProtocol(ma.P_P2P); err == nil && last == p.String() {
		return addr
	}
	return addr.Encapsulate(p2pSuffix)
}
