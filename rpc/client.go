package rpc

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tkoeppen/taskwire/comm"
)

// Client sends request envelopes to an rpc server and waits for the
// replies. A client keeps one connection per remote address and is safe
// for concurrent use; concurrent requests to the same address are
// serialized on its connection.
type Client struct {
	config ClientConfig

	mu    sync.Mutex
	comms map[string]*clientConn
}

// clientConn is one cached connection. Its mutex serializes round
// trips, a comm permits only one outstanding read.
type clientConn struct {
	comm comm.Comm
	mu   sync.Mutex
}

// NewClient creates a client with the given config.
func NewClient(config ClientConfig) *Client {
	if config.Retries < 1 {
		config.Retries = 1
	}
	return &Client{
		config: config,
		comms:  make(map[string]*clientConn),
	}
}

// SendRecv sends msg to addr and returns the server's reply. Transient
// failures are retried with exponential backoff and a small random
// jitter; a reply with "status": "error" is surfaced as an error.
func (c *Client) SendRecv(ctx context.Context, addr string, msg Message) (Message, error) {
	var lastErr error

	// Initial backoff duration in milliseconds
	backoffMs := 50

	for i := 0; i < c.config.Retries; i++ {
		resp, err := c.attempt(ctx, addr, msg)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		log.Debugf("request attempt %d/%d to %s failed: %v", i+1, c.config.Retries, addr, err)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if i < c.config.Retries-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			select {
			case <-time.After(time.Duration(jitter) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoffMs *= 2
		}
	}
	return nil, fmt.Errorf("request to %s failed after %d attempts: %w", addr, c.config.Retries, lastErr)
}

// Send delivers msg without waiting for a reply.
func (c *Client) Send(ctx context.Context, addr string, msg Message) error {
	msg["reply"] = false
	conn, err := c.connection(ctx, addr)
	if err != nil {
		return err
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if _, err := conn.comm.Write(ctx, msg); err != nil {
		c.dropConnection(addr, conn)
		return err
	}
	return nil
}

// Close closes all cached connections.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for addr, conn := range c.comms {
		if err := conn.comm.Close(); err != nil {
			log.Errorf("closing connection to %s: %v", addr, err)
		}
		delete(c.comms, addr)
	}
}

// attempt performs one write/read round trip. Any failure invalidates
// the cached connection so the next attempt dials fresh.
func (c *Client) attempt(ctx context.Context, addr string, msg Message) (Message, error) {
	conn, err := c.connection(ctx, addr)
	if err != nil {
		return nil, err
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if _, err := conn.comm.Write(ctx, msg); err != nil {
		c.dropConnection(addr, conn)
		return nil, err
	}
	v, err := conn.comm.Read(ctx)
	if err != nil {
		c.dropConnection(addr, conn)
		return nil, err
	}

	resp, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("unexpected reply type %T from %s", v, addr)
	}
	if status, _ := resp["status"].(string); status == "error" {
		errText, _ := resp["error"].(string)
		return nil, fmt.Errorf("remote error from %s: %s", addr, errText)
	}
	return resp, nil
}

// connection returns the cached connection for addr, dialing if needed.
func (c *Client) connection(ctx context.Context, addr string) (*clientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn, ok := c.comms[addr]; ok && !conn.comm.Closed() {
		return conn, nil
	}
	cm, err := comm.Connect(ctx, addr, c.config.ConnectTimeout, c.config.Comm)
	if err != nil {
		return nil, err
	}
	conn := &clientConn{comm: cm}
	c.comms[addr] = conn
	return conn, nil
}

// dropConnection aborts and forgets a connection after a failure. The
// map is only cleared if it still holds this exact comm, so a dial that
// raced in between is not discarded.
func (c *Client) dropConnection(addr string, conn *clientConn) {
	conn.comm.Abort()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.comms[addr] == conn {
		delete(c.comms, addr)
	}
}
