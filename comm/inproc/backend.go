package inproc

import (
	"context"

	"github.com/tkoeppen/taskwire/comm"
)

type connector struct {
	manager *Manager
}

// Connect pairs a fresh queue pair with the listener behind loc. The
// connect only succeeds once the listener has actually built its side
// of the comm; a listener stopped mid-handshake leaves the request
// unanswered and the context decides when to give up.
func (c connector) Connect(ctx context.Context, loc string, opts comm.Options) (comm.Comm, error) {
	l, err := c.manager.listenerFor(loc)
	if err != nil {
		return nil, err
	}

	req := &connRequest{
		c2s:        newQueue(),
		s2c:        newQueue(),
		clientAddr: c.manager.NewAddress(),
		connected:  make(chan struct{}),
	}
	l.enqueue(req)

	select {
	case <-req.connected:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return newComm("inproc://"+req.clientAddr, "inproc://"+loc, req.s2c, req.c2s, opts), nil
}

type backend struct {
	manager *Manager
}

func (b backend) Connector() comm.Connector {
	return connector{manager: b.manager}
}

func (b backend) NewListener(loc string, handler comm.Handler, opts comm.Options) (comm.Listener, error) {
	return newListener(b.manager, loc, handler, opts), nil
}

func init() {
	comm.Default().RegisterBackend("inproc", backend{manager: defaultManager})
}
