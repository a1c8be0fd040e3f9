// Package comm provides the message-oriented channel abstraction of the
// taskwire substrate: a uniform contract over transports that exchange
// framed, length-prefixed, optionally compressed messages.
//
// The package focuses on:
//   - Defining the Comm, Listener and Connector contracts that every
//     transport implementation must fulfill
//   - Address parsing and normalization ("scheme://location")
//   - A scheme-keyed backend registry and the Connect/Listen facade with
//     bounded connect retry
//
// Transport implementations live in subpackages (tcp, inproc) and
// register themselves against the default registry on import:
//
//	import (
//	    "github.com/tkoeppen/taskwire/comm"
//	    _ "github.com/tkoeppen/taskwire/comm/tcp"
//	)
//
//	c, err := comm.Connect(ctx, "tcp://10.0.0.5:7071", 3*time.Second, comm.DefaultOptions())
//
// A Comm owns exactly one underlying transport resource and transitions
// Open -> Closed via Close, Abort, or the peer's end-of-stream. Once
// closed, Read and Write fail with ClosedError. Only one outstanding
// Read per Comm is supported.
package comm
