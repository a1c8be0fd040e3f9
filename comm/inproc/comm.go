package inproc

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"

	"github.com/tkoeppen/taskwire/comm"
	"github.com/tkoeppen/taskwire/protocol"
)

var log = logger.GetLogger("comm/inproc")

// eof is the end-of-stream sentinel pushed into the peer's read queue
// by Close and Abort.
type eofSentinel struct{}

var eof = eofSentinel{}

// InProc is an established comm backed by a pair of in-process queues,
// one per direction.
type InProc struct {
	localAddr string
	peerAddr  string
	readQ     *queue
	writeQ    *queue

	registry    *protocol.Registry
	deserialize bool

	closed atomic.Bool
}

func newComm(localAddr, peerAddr string, readQ, writeQ *queue, opts comm.Options) *InProc {
	return &InProc{
		localAddr:   localAddr,
		peerAddr:    peerAddr,
		readQ:       readQ,
		writeQ:      writeQ,
		registry:    opts.Registry,
		deserialize: opts.Deserialize,
	}
}

func (c *InProc) LocalAddr() string { return c.localAddr }
func (c *InProc) PeerAddr() string  { return c.peerAddr }

func (c *InProc) String() string {
	return fmt.Sprintf("<InProc %s>", c.peerAddr)
}

// Read suspends until the peer writes a message or signals
// end-of-stream. Messages travel by reference, but extraction semantics
// are replayed exactly as a wire transfer would: markers are unwrapped
// and placeholders decoded when deserialization is on.
func (c *InProc) Read(ctx context.Context) (any, error) {
	if c.closed.Load() {
		return nil, &comm.ClosedError{Reason: "read on closed comm"}
	}

	v, err := c.readQ.get(ctx)
	if err != nil {
		return nil, err
	}
	if _, isEOF := v.(eofSentinel); isEOF {
		c.closed.Store(true)
		return nil, &comm.ClosedError{Reason: fmt.Sprintf("in %s: closed by peer", c)}
	}

	if c.deserialize {
		return protocol.NestedDeserialize(c.registry, v)
	}
	return v, nil
}

// Write hands the message to the peer's read queue. No framing or
// serialization happens within a process.
func (c *InProc) Write(ctx context.Context, msg any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if c.Closed() {
		return 0, &comm.ClosedError{Reason: "write on closed comm"}
	}
	c.writeQ.put(msg)
	return 1, nil
}

// Close signals end-of-stream to the peer. Pushing the sentinel is
// cheap, so Close and Abort behave identically here.
func (c *InProc) Close() error {
	c.Abort()
	return nil
}

// Abort signals end-of-stream and marks this end closed.
func (c *InProc) Abort() {
	if !c.Closed() {
		c.writeQ.put(eof)
		c.closed.Store(true)
	}
}

// Closed reports whether this comm is closed: either this end called
// Close/Abort, or the peer did and its end-of-stream sentinel is next
// in the read queue.
func (c *InProc) Closed() bool {
	if c.closed.Load() {
		return true
	}
	if v, ok := c.readQ.peek(); ok {
		if _, isEOF := v.(eofSentinel); isEOF {
			c.closed.Store(true)
			return true
		}
	}
	return false
}
