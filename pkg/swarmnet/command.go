package swarmnet

import (
	ma "github.com/multiformats/go-multiaddr"

	"github.com/libp2p/go-libp2p/core/peer"
)

// Result is the value type carried by every reply sink. Using a
// struct{Data,Err} rather than a bare T lets the facade distinguish "the
// loop closed this channel without a value" (shutdown) from "the loop
// sent the legitimate zero value" (e.g. an empty segment).
type Result[T any] struct {
	Value T
	Err   error
}

// CommandKind tags the variant carried by a Command.
type CommandKind int

const (
	CommandDial CommandKind = iota
	CommandProvideSegment
	CommandRequestSegment
	CommandQuit
)

// Command is the tagged union the façade enqueues and the event loop
// dequeues, per C4. Only the fields relevant to Kind are populated.
type Command struct {
	Kind CommandKind

	// Dial
	PeerID  peer.ID
	Addr    ma.Multiaddr
	DialAck chan Result[struct{}]

	// ProvideSegment / RequestSegment
	SegmentID string
	Data      []byte
	ReplySink chan Result[[]byte]

	// Quit
	QuitAck chan Result[struct{}]
}
