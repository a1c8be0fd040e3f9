package tcp

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"

	"github.com/tkoeppen/taskwire/comm"
	"github.com/tkoeppen/taskwire/protocol"
)

var log = logger.GetLogger("comm/tcp")

var (
	bytesRead    = metrics.GetOrCreateCounter(`taskwire_tcp_bytes_total{direction="read"}`)
	bytesWritten = metrics.GetOrCreateCounter(`taskwire_tcp_bytes_total{direction="write"}`)
)

// wireOrder is the byte order of the frame count and length table.
var wireOrder = binary.LittleEndian

// maxFramesPerMessage guards against a garbled count field allocating
// absurd length tables.
const maxFramesPerMessage = 1 << 21

const readBufferSize = 512 * 1024

// TCP is an established comm over a stream socket.
type TCP struct {
	conn      net.Conn
	br        *bufio.Reader
	localAddr string
	peerAddr  string

	registry    *protocol.Registry
	deserialize bool

	writeMu sync.Mutex
	closed  atomic.Bool
}

func newComm(conn net.Conn, localAddr, peerAddr string, opts comm.Options) *TCP {
	return &TCP{
		conn:        conn,
		br:          bufio.NewReaderSize(conn, readBufferSize),
		localAddr:   localAddr,
		peerAddr:    peerAddr,
		registry:    opts.Registry,
		deserialize: opts.Deserialize,
	}
}

func (t *TCP) LocalAddr() string { return t.localAddr }
func (t *TCP) PeerAddr() string  { return t.peerAddr }

func (t *TCP) String() string {
	return fmt.Sprintf("<TCP %s -> %s>", t.localAddr, t.peerAddr)
}

// Read blocks until one full frame sequence has arrived, then decodes
// it. End-of-stream closes the comm and fails with ClosedError; a frame
// sequence that cannot be decoded aborts the comm, since a stream that
// delivered garbage can no longer be trusted.
func (t *TCP) Read(ctx context.Context) (any, error) {
	if t.closed.Load() {
		return nil, &comm.ClosedError{Reason: "read on closed comm"}
	}
	if err := t.applyDeadline(ctx, t.conn.SetReadDeadline); err != nil {
		return nil, err
	}

	frames, n, err := t.readFrames()
	if err != nil {
		t.markClosed()
		if err == io.EOF {
			return nil, &comm.ClosedError{Reason: fmt.Sprintf("in %s: connection closed by peer", t)}
		}
		return nil, &comm.ClosedError{Reason: fmt.Sprintf("in %s: read failed", t), Err: err}
	}
	bytesRead.Add(n)

	msg, err := protocol.DecodeMessage(t.registry, frames, t.deserialize)
	if err != nil {
		t.Abort()
		return nil, &comm.ClosedError{Reason: "aborted stream on truncated data", Err: err}
	}
	return msg, nil
}

// readFrames reads one length-prefixed frame sequence off the stream.
func (t *TCP) readFrames() ([][]byte, int, error) {
	var head [8]byte
	if _, err := io.ReadFull(t.br, head[:]); err != nil {
		return nil, 0, err
	}
	count := wireOrder.Uint64(head[:])
	if count > maxFramesPerMessage {
		return nil, 0, fmt.Errorf("implausible frame count %d", count)
	}

	lengthTable := make([]byte, 8*count)
	if _, err := io.ReadFull(t.br, lengthTable); err != nil {
		return nil, 0, err
	}

	total := 8 + len(lengthTable)
	frames := make([][]byte, count)
	for i := range frames {
		length := wireOrder.Uint64(lengthTable[8*i : 8*i+8])
		frame := make([]byte, length)
		if _, err := io.ReadFull(t.br, frame); err != nil {
			return nil, 0, err
		}
		frames[i] = frame
		total += int(length)
	}
	return frames, total, nil
}

// Write encodes msg and sends the length prefix plus all frames,
// returning the number of payload bytes. Encoding failures surface
// as-is (the comm stays usable); transport failures close the comm.
func (t *TCP) Write(ctx context.Context, msg any) (int, error) {
	if t.closed.Load() {
		return 0, &comm.ClosedError{Reason: "write on closed comm"}
	}

	frames, err := protocol.EncodeMessage(t.registry, msg)
	if err != nil {
		return 0, err
	}

	prelude := make([]byte, 8+8*len(frames))
	wireOrder.PutUint64(prelude[:8], uint64(len(frames)))
	payload := 0
	bufs := make(net.Buffers, 0, len(frames)+1)
	bufs = append(bufs, prelude)
	for i, f := range frames {
		wireOrder.PutUint64(prelude[8+8*i:16+8*i], uint64(len(f)))
		bufs = append(bufs, f)
		payload += len(f)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.applyDeadline(ctx, t.conn.SetWriteDeadline); err != nil {
		return 0, err
	}
	// net.Buffers uses writev where available, so large frame sequences
	// go out without concatenation.
	if _, err := bufs.WriteTo(t.conn); err != nil {
		t.markClosed()
		return 0, &comm.ClosedError{Reason: fmt.Sprintf("in %s: write failed", t), Err: err}
	}
	bytesWritten.Add(payload)
	return payload, nil
}

// Close shuts the connection down cleanly. The kernel flushes what has
// been written. Idempotent.
func (t *TCP) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.conn.Close()
}

// Abort discards in-flight data: linger is zeroed so the peer sees a
// reset rather than a clean shutdown.
func (t *TCP) Abort() {
	if t.closed.Swap(true) {
		return
	}
	if tc, ok := t.conn.(*net.TCPConn); ok {
		tc.SetLinger(0)
	}
	t.conn.Close()
}

func (t *TCP) Closed() bool {
	return t.closed.Load()
}

func (t *TCP) markClosed() {
	if !t.closed.Swap(true) {
		t.conn.Close()
	}
}

// applyDeadline maps a context deadline onto the socket. A context
// without deadline clears any previous one.
func (t *TCP) applyDeadline(ctx context.Context, set func(time.Time) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok {
		return set(dl)
	}
	return set(time.Time{})
}
