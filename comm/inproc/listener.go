package inproc

import (
	"context"
	"sync"

	"github.com/tkoeppen/taskwire/comm"
)

// connRequest is the handshake a connector enqueues on its target
// listener: the two directional queues, the connector's fresh address,
// and a channel closed once the server-side comm exists.
type connRequest struct {
	c2s        *queue
	s2c        *queue
	clientAddr string
	connected  chan struct{}
}

// stop is the sentinel that ends a listener's accept loop.
type stopSentinel struct{}

type listener struct {
	manager  *Manager
	loc      string
	handler  comm.Handler
	opts     comm.Options
	requests *queue
	stopOnce sync.Once
}

func newListener(m *Manager, loc string, handler comm.Handler, opts comm.Options) *listener {
	if loc == "" {
		loc = m.NewAddress()
	}
	return &listener{
		manager:  m,
		loc:      loc,
		handler:  handler,
		opts:     opts,
		requests: newQueue(),
	}
}

func (l *listener) Start() error {
	if err := l.manager.addListener(l.loc, l); err != nil {
		return err
	}
	go l.acceptLoop()
	return nil
}

func (l *listener) acceptLoop() {
	ctx := context.Background()
	for {
		v, err := l.requests.get(ctx)
		if err != nil {
			log.Errorf("accept loop on %s: %v", l.Addr(), err)
			return
		}
		if _, stopped := v.(stopSentinel); stopped {
			return
		}
		req := v.(*connRequest)
		c := newComm(l.Addr(), "inproc://"+req.clientAddr, req.c2s, req.s2c, l.opts)
		close(req.connected)
		go l.handler(c)
	}
}

// enqueue hands a connection request to the accept loop. Safe to call
// from any goroutine.
func (l *listener) enqueue(req *connRequest) {
	l.requests.put(req)
}

// Stop ends the accept loop and removes the listener from its manager.
// Established comms are not shut down.
func (l *listener) Stop() {
	l.stopOnce.Do(func() {
		l.requests.put(stopSentinel{})
		l.manager.removeListener(l.loc)
	})
}

func (l *listener) Addr() string {
	return "inproc://" + l.loc
}

func (l *listener) ContactAddr() string {
	return l.Addr()
}
