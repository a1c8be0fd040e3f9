package comm

import (
	"context"

	"github.com/tkoeppen/taskwire/protocol"
)

// Comm is an established bidirectional message channel, independent of
// the underlying transport.
type Comm interface {
	// Read blocks until a full message is available or the peer signals
	// end-of-stream. Once the comm is closed, Read fails with
	// ClosedError. Only one Read may be outstanding at a time.
	Read(ctx context.Context) (any, error)

	// Write encodes a message and sends it, returning the number of
	// payload bytes written. Fails with ClosedError if the transport is
	// closed before or during the write.
	Write(ctx context.Context, msg any) (int, error)

	// Close shuts the comm down cleanly, flushing pending writes where
	// the transport permits. Idempotent.
	Close() error

	// Abort closes the comm abruptly, discarding in-flight data.
	Abort()

	// Closed reports whether the comm is closed. Side-effect free and
	// safe to call at any time.
	Closed() bool

	// LocalAddr returns this end's address as a URL string.
	LocalAddr() string

	// PeerAddr returns the peer's address. For logging and debugging.
	PeerAddr() string
}

// Handler is invoked once per accepted connection with a live Comm. The
// handler owns the Comm for the connection's lifetime and must close or
// abort it.
type Handler func(Comm)

// Listener owns a bound server resource and accepts connections until
// stopped.
type Listener interface {
	// Start begins accepting connections.
	Start() error

	// Stop stops accepting. Established comms are not shut down.
	Stop()

	// Addr returns the listening address as a URL string.
	Addr() string

	// ContactAddr returns an address other processes can connect to
	// (wildcard hosts replaced with a concrete IP).
	ContactAddr() string
}

// Connector establishes a single outbound connection to a
// transport-specific location.
type Connector interface {
	Connect(ctx context.Context, loc string, opts Options) (Comm, error)
}

// Backend bundles a transport's connector and listener factory. One
// backend is registered per address scheme.
type Backend interface {
	Connector() Connector
	NewListener(loc string, handler Handler, opts Options) (Listener, error)
}

// Options configures comms created by Connect and Listen.
type Options struct {
	// Deserialize controls whether Read returns fully decoded objects
	// (true) or leaves extracted payloads as protocol.Serialized
	// placeholders for pass-through routing.
	Deserialize bool

	// Registry is the codec registry to encode and decode with; nil
	// selects protocol.DefaultRegistry.
	Registry *protocol.Registry

	// TCP tunes stream-socket transports; ignored by others.
	TCP TCPOptions
}

// DefaultOptions returns the options used by most callers: full
// deserialization with the default registry.
func DefaultOptions() Options {
	return Options{
		Deserialize: true,
		TCP:         DefaultTCPOptions(),
	}
}
