package tcp

import (
	"net"
	"sync"

	"github.com/VictoriaMetrics/metrics"

	"github.com/tkoeppen/taskwire/comm"
)

var connsAccepted = metrics.GetOrCreateCounter(`taskwire_tcp_connections_total{kind="accepted"}`)

type listener struct {
	loc     string
	handler comm.Handler
	opts    comm.Options

	ln       net.Listener
	stopOnce sync.Once
	done     chan struct{}
}

func newListener(loc string, handler comm.Handler, opts comm.Options) *listener {
	return &listener{
		loc:     loc,
		handler: handler,
		opts:    opts,
		done:    make(chan struct{}),
	}
}

func (l *listener) Start() error {
	host, port, err := comm.ParseHostPort(l.loc, 0)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", comm.UnparseHostPort(host, port))
	if err != nil {
		return err
	}
	l.ln = ln
	log.Infof("listening on %s", l.Addr())
	go l.acceptLoop()
	return nil
}

func (l *listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			log.Errorf("accept on %s failed: %v", l.Addr(), err)
			return
		}
		if err := upgradeConnection(conn, l.opts.TCP); err != nil {
			log.Warningf("upgrading accepted connection: %v", err)
			conn.Close()
			continue
		}
		connsAccepted.Inc()
		peer := prefix + conn.RemoteAddr().String()
		local := prefix + conn.LocalAddr().String()
		log.Debugf("incoming connection from %s to %s", peer, local)
		c := newComm(conn, local, peer, l.opts)
		go l.handler(c)
	}
}

// Stop stops accepting new connections. Established comms stay open.
func (l *listener) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
		if l.ln != nil {
			l.ln.Close()
		}
	})
}

func (l *listener) Addr() string {
	return prefix + l.ln.Addr().String()
}

// ContactAddr replaces a wildcard listening host with an IP other
// processes can actually reach.
func (l *listener) ContactAddr() string {
	host, port, err := comm.ParseHostPort(l.ln.Addr().String(), 0)
	if err != nil {
		return l.Addr()
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		host = comm.LocalIP()
	}
	return prefix + comm.UnparseHostPort(host, port)
}
