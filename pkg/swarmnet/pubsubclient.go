package swarmnet

import (
	"context"
	"fmt"
	"sync"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"

	"github.com/marecchia-io/node/pkg/striping"
)

// pubsubClient wraps go-libp2p-pubsub's gossipsub, signing messages
// with the host's private key by default (matching "signed-message
// authenticity using the local keypair"). One topic exists per segment
// id, joined lazily on first Provide/Request and left open afterward;
// the event loop decides when a topic is no longer needed.
type pubsubClient struct {
	ps     *pubsub.PubSub
	host   host.Host
	events chan Event

	// negotiateSem bounds concurrent topic-join/subscribe negotiation,
	// this client's realization of swarm.max_inbound_negotiating: each
	// Subscribe call acquires a slot for the duration of the gossipsub
	// stream handler registration it triggers, so a burst of requested
	// segments can't all negotiate subscriptions at once.
	negotiateSem chan struct{}

	mu      sync.Mutex
	topics  map[string]*pubsub.Topic
	subs    map[string]*pubsub.Subscription
	partial map[string]*striping.Reassembler
}

func newPubsubClient(ctx context.Context, h host.Host, maxInboundNegotiating int) (*pubsubClient, error) {
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("swarmnet: gossipsub: %w", err)
	}
	if maxInboundNegotiating < 1 {
		maxInboundNegotiating = 1
	}
	return &pubsubClient{
		ps:           ps,
		host:         h,
		negotiateSem: make(chan struct{}, maxInboundNegotiating),
		topics:       make(map[string]*pubsub.Topic),
		subs:         make(map[string]*pubsub.Subscription),
		partial:      make(map[string]*striping.Reassembler),
	}, nil
}

func (c *pubsubClient) topic(segmentID string) (*pubsub.Topic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.topics[segmentID]; ok {
		return t, nil
	}
	t, err := joinTopic(c.ps, segmentID)
	if err != nil {
		return nil, err
	}
	c.topics[segmentID] = t
	return t, nil
}

// Provide publishes data on the topic named by segmentID. Payloads
// above striping.ChunkThreshold are fragmented into RaptorQ symbols and
// published as one message per symbol; smaller payloads are published
// as a single raw message exactly as the wire layer (C6) specifies.
func (c *pubsubClient) Provide(ctx context.Context, segmentID string, data []byte) error {
	t, err := c.topic(segmentID)
	if err != nil {
		return err
	}

	if len(data) <= striping.ChunkThreshold {
		return t.Publish(ctx, data)
	}

	frames, err := striping.Encode(data)
	if err != nil {
		return fmt.Errorf("swarmnet: stripe segment: %w", err)
	}
	for _, f := range frames {
		if err := t.Publish(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe joins and subscribes to the topic named by segmentID,
// starting a goroutine that forwards arriving messages (or fully
// reassembled striped segments) as PubSubMessage events. The actual
// stream-handler registration is gated by negotiateSem, per
// max_inbound_negotiating.
func (c *pubsubClient) Subscribe(ctx context.Context, segmentID string) error {
	t, err := c.topic(segmentID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if _, ok := c.subs[segmentID]; ok {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if c.negotiateSem != nil {
		select {
		case c.negotiateSem <- struct{}{}:
			defer func() { <-c.negotiateSem }()
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	sub, err := t.Subscribe()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.subs[segmentID] = sub
	c.mu.Unlock()

	go c.readLoop(ctx, segmentID, sub)
	return nil
}

// Unsubscribe leaves the topic for segmentID once the event loop no
// longer needs it (request satisfied, or no pending request/provider
// remains), per the wire layer's subscription invariant.
func (c *pubsubClient) Unsubscribe(segmentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sub, ok := c.subs[segmentID]; ok {
		sub.Cancel()
		delete(c.subs, segmentID)
	}
	delete(c.partial, segmentID)
	if t, ok := c.topics[segmentID]; ok {
		t.Close()
		delete(c.topics, segmentID)
	}
}

func (c *pubsubClient) readLoop(ctx context.Context, segmentID string, sub *pubsub.Subscription) {
	self := c.host.ID()
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == self {
			continue
		}

		data, ok := c.reassemble(segmentID, msg.Data)
		if !ok {
			continue
		}

		select {
		case c.events <- Event{Kind: EventPubSubMessage, Topic: segmentID, Data: data}:
		case <-ctx.Done():
			return
		}
	}
}

// reassemble feeds a raw message through the striping reassembler when
// it carries a striping frame header, returning the complete payload
// once enough symbols have arrived. Messages at or below
// striping.ChunkThreshold carry no frame header and are returned as-is;
// UnmarshalFrame tells the two apart by frameMagic, not merely by
// length, so a raw payload of any size is never mistaken for a frame.
func (c *pubsubClient) reassemble(segmentID string, raw []byte) ([]byte, bool) {
	frame, err := striping.UnmarshalFrame(raw)
	if err != nil {
		// Not a striping frame (too short, or missing the magic
		// prefix): a raw, unchunked payload, the common case.
		return raw, true
	}

	c.mu.Lock()
	r, ok := c.partial[segmentID]
	if !ok {
		r = striping.NewReassembler(frame.ObjectSize)
		c.partial[segmentID] = r
	}
	c.mu.Unlock()

	data, done, err := r.Add(frame)
	if err != nil || !done {
		return nil, false
	}

	c.mu.Lock()
	delete(c.partial, segmentID)
	c.mu.Unlock()
	return data, true
}
