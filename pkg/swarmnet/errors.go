package swarmnet

import "errors"

var (
	// ErrBadNamespace is returned by Construct when the namespace fails
	// pkg/segment validation.
	ErrBadNamespace = errors.New("swarmnet: bad namespace")

	// ErrConfigError wraps a malformed configuration envelope.
	ErrConfigError = errors.New("swarmnet: config error")

	// ErrListenError is returned when the host fails to bind any
	// configured listen address.
	ErrListenError = errors.New("swarmnet: listen error")

	// ErrDialError is returned on the Dial reply sink when the outbound
	// connection attempt fails.
	ErrDialError = errors.New("swarmnet: dial error")

	// ErrConnectionClosed is delivered to any reply sink still pending
	// when the event loop exits, whether by Quit or by a fatal error.
	ErrConnectionClosed = errors.New("swarmnet: connection closed")

	// ErrRequestTimeout is delivered to a RequestSegment reply sink
	// evicted from the registry before a message arrived.
	ErrRequestTimeout = errors.New("swarmnet: request timed out")

	// ErrSubscribe is delivered to a RequestSegment reply sink when the
	// pub/sub subscribe call itself fails.
	ErrSubscribe = errors.New("swarmnet: subscribe error")
)
