package swarmnet

import (
	"time"

	"github.com/libp2p/go-libp2p-pubsub"
)

// IdentifyProtocolID is the exact literal the identify service
// advertises as this node's protocol version.
const IdentifyProtocolID = "/marecchia-identify/0.0.1"

const (
	// DefaultPingInterval is how often the liveness monitor probes a
	// connected peer.
	DefaultPingInterval = 5 * time.Second
	// DefaultPingTimeout bounds a single liveness probe.
	DefaultPingTimeout = 10 * time.Second
	// RendezvousTTL is the requested registration lifetime, in seconds.
	RendezvousTTL = 60
	// DefaultIdleConnTimeout matches the swarm config knob of the same name.
	DefaultIdleConnTimeout = 60 * time.Second
	// DefaultDialConcurrency bounds outbound Command::Dial parallelism.
	DefaultDialConcurrency = 5
	// DefaultMaxInboundNegotiating bounds concurrently-negotiating inbound streams.
	DefaultMaxInboundNegotiating = 16
	// DefaultRegistryCapacity is the segment-request registry's default size.
	DefaultRegistryCapacity = 10
)

// topicName returns the pub/sub topic for a segment id. Per spec the
// topic name is the segment id string itself, interpreted by gossipsub
// as an identity-hashed topic — no additional hashing layer.
func topicName(segmentID string) string {
	return segmentID
}

// joinTopic joins the topic named by topicName(segmentID) on ps; it is
// pubsubclient.go's single call site for topic construction.
func joinTopic(ps *pubsub.PubSub, segmentID string) (*pubsub.Topic, error) {
	return ps.Join(topicName(segmentID))
}
