package config

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// CurrentConfigVersion is the latest configuration schema version.
// Bump this when adding fields that require migration.
const CurrentConfigVersion = 1

// defaultRendezvousAddr is the configuration-supplied default rendezvous/
// relay node address, per the wire protocols table. The trailing /p2p/
// component is a placeholder peer id; real deployments must override
// rendezvous_addr with the operator's actual rendezvous peer id (Open
// Question 1: the rendezvous peer id is configured, never randomly
// generated).
const defaultRendezvousAddr = "/dns/rendezvous.marecchia.io/tcp/443/wss/p2p/12D3KooW9pNAk8aiBuGVQtWRdbkLmo5qVL3e2h5UxbN2Nz9ttwiw"

// Config is the unified configuration envelope for a node (§6
// "Configuration envelope" table).
type Config struct {
	Version int `yaml:"version,omitempty"`

	Namespace string `yaml:"namespace"`

	Identity  IdentityConfig  `yaml:"identity"`
	Network   NetworkConfig   `yaml:"network"`
	Relay     RelayConfig     `yaml:"relay,omitempty"`
	Liveness  LivenessConfig  `yaml:"liveness,omitempty"`
	Swarm     SwarmConfig     `yaml:"swarm,omitempty"`
	Registry  RegistryConfig  `yaml:"registry,omitempty"`
	Discovery DiscoveryConfig `yaml:"discovery,omitempty"`

	// resolved at Load time from Relay.RendezvousAddr's trailing /p2p/<id>
	rendezvousPeerID peer.ID
	rendezvousAddr   ma.Multiaddr
}

// IdentityConfig holds identity-related configuration.
type IdentityConfig struct {
	KeyFile string `yaml:"key_file"`
}

// NetworkConfig holds listen-address configuration.
type NetworkConfig struct {
	ListenAddresses []string `yaml:"listen_addresses"`
}

// RelayConfig holds rendezvous/relay node addressing.
type RelayConfig struct {
	// RendezvousAddr overrides the default rendezvous/relay node address.
	// Must end in a /p2p/<id> component identifying the rendezvous peer.
	RendezvousAddr string `yaml:"rendezvous_addr,omitempty"`
}

// LivenessConfig holds ping cadence configuration.
type LivenessConfig struct {
	PingInterval time.Duration `yaml:"ping_interval,omitempty"`
	PingTimeout  time.Duration `yaml:"ping_timeout,omitempty"`
}

// SwarmConfig holds the transport-stack admission-control knobs from §4.3.
type SwarmConfig struct {
	IdleConnTimeout       time.Duration `yaml:"idle_connection_timeout,omitempty"`
	DialConcurrency       int           `yaml:"dial_concurrency,omitempty"`
	MaxInboundNegotiating int           `yaml:"max_inbound_negotiating,omitempty"`
}

// RegistryConfig holds the segment-request registry's capacity.
type RegistryConfig struct {
	Capacity int `yaml:"request_registry_capacity,omitempty"`
}

// DiscoveryConfig holds discovery-related configuration, including the
// LAN-discovery supplement (§6.3, NEW; off by default).
type DiscoveryConfig struct {
	LANDiscovery *bool `yaml:"lan_discovery,omitempty"`
}

// IsLANDiscoveryEnabled reports whether mDNS LAN discovery is enabled.
// Defaults to false: the spec's "Happy path" scenarios all go through
// rendezvous, not LAN broadcast.
func (d DiscoveryConfig) IsLANDiscoveryEnabled() bool {
	return d.LANDiscovery != nil && *d.LANDiscovery
}

// PingInterval returns the configured liveness interval, or the wire
// layer's default (5s) if unset.
func (c *Config) PingInterval() time.Duration {
	if c.Liveness.PingInterval > 0 {
		return c.Liveness.PingInterval
	}
	return 5 * time.Second
}

// PingTimeout returns the configured liveness timeout, or the wire
// layer's default (10s) if unset.
func (c *Config) PingTimeout() time.Duration {
	if c.Liveness.PingTimeout > 0 {
		return c.Liveness.PingTimeout
	}
	return 10 * time.Second
}

// IdleConnectionTimeout returns the configured idle-connection grace
// period, or the default (60s) if unset.
func (c *Config) IdleConnectionTimeout() time.Duration {
	if c.Swarm.IdleConnTimeout > 0 {
		return c.Swarm.IdleConnTimeout
	}
	return 60 * time.Second
}

// DialConcurrency returns the configured outbound dial concurrency
// factor, or the default (5) if unset.
func (c *Config) DialConcurrency() int {
	if c.Swarm.DialConcurrency > 0 {
		return c.Swarm.DialConcurrency
	}
	return 5
}

// MaxInboundNegotiating returns the configured inbound-negotiation
// admission limit, or the default (16) if unset.
func (c *Config) MaxInboundNegotiating() int {
	if c.Swarm.MaxInboundNegotiating > 0 {
		return c.Swarm.MaxInboundNegotiating
	}
	return 16
}

// RegistryCapacity returns the configured registry capacity, or the
// default (10) if unset.
func (c *Config) RegistryCapacity() int {
	if c.Registry.Capacity > 0 {
		return c.Registry.Capacity
	}
	return 10
}

// RendezvousAddr returns the resolved rendezvous/relay multiaddr,
// computed at Load time.
func (c *Config) RendezvousAddr() ma.Multiaddr { return c.rendezvousAddr }

// RendezvousPeerID returns the rendezvous node's peer id, parsed from
// RendezvousAddr's trailing /p2p/<id> component at Load time.
func (c *Config) RendezvousPeerID() peer.ID { return c.rendezvousPeerID }

// StaticRelays returns the rendezvous node as a single-entry static
// relay list, for libp2p.EnableAutoRelayWithStaticRelays.
func (c *Config) StaticRelays() []peer.AddrInfo {
	if c.rendezvousAddr == nil {
		return nil
	}
	return []peer.AddrInfo{{ID: c.rendezvousPeerID, Addrs: []ma.Multiaddr{c.rendezvousAddr}}}
}
