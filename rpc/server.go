package rpc

import (
	"context"
	"fmt"
	"sync"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tkoeppen/taskwire/comm"
)

var log = logger.GetLogger("rpc")

var (
	requestsHandled = metrics.GetOrCreateCounter(`taskwire_rpc_requests_total{result="ok"}`)
	requestsFailed  = metrics.GetOrCreateCounter(`taskwire_rpc_requests_total{result="error"}`)
)

// HandlerFunc processes one request envelope and returns the reply. A
// returned error is converted into an error reply for the caller.
type HandlerFunc func(ctx context.Context, msg Message) (Message, error)

// Server accepts connections on a comm listener and dispatches request
// envelopes to registered op handlers.
type Server struct {
	config   ServerConfig
	handlers *xsync.MapOf[string, HandlerFunc]
	listener comm.Listener

	mu      sync.Mutex
	started bool
}

// NewServer creates a server with the given config. Handlers are
// registered with Handle before Serve is called.
func NewServer(config ServerConfig) *Server {
	if config.WorkersPerConn < 1 {
		config.WorkersPerConn = 1
	}
	return &Server{
		config:   config,
		handlers: xsync.NewMapOf[string, HandlerFunc](),
	}
}

// Handle registers the handler for an op, replacing any previous one.
func (s *Server) Handle(op string, h HandlerFunc) {
	s.handlers.Store(op, h)
}

// Serve binds the configured address and starts accepting connections.
// It returns once the listener is running.
func (s *Server) Serve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("server already started")
	}

	l, err := comm.Listen(s.config.ListenAddr, s.handleComm, s.config.Comm)
	if err != nil {
		return err
	}
	s.listener = l
	s.started = true
	log.Infof("rpc server listening on %s with %d workers per connection",
		l.Addr(), s.config.WorkersPerConn)
	return nil
}

// Addr returns the listener's contact address, empty before Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.ContactAddr()
}

// Close stops accepting connections. Established comms finish their
// in-flight requests and close when their peer disconnects.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		s.listener.Stop()
	}
	s.started = false
}

// handleComm serves one connection: it reads envelopes in a loop and
// dispatches each through a counting semaphore that bounds concurrent
// workers, writing replies under a mutex so responses never interleave.
func (s *Server) handleComm(c comm.Comm) {
	defer c.Close()

	workerSemaphore := make(chan struct{}, s.config.WorkersPerConn)
	var wg sync.WaitGroup
	var writeMu sync.Mutex

	reply := func(msg Message) {
		writeMu.Lock()
		defer writeMu.Unlock()

		ctx := context.Background()
		if s.config.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
			defer cancel()
		}
		if _, err := c.Write(ctx, msg); err != nil {
			log.Errorf("failed to write reply to %s: %v", c.PeerAddr(), err)
		}
	}

	process := func(msg Message) {
		defer func() {
			<-workerSemaphore
			wg.Done()
		}()

		resp, err := s.dispatch(msg)
		if err != nil {
			requestsFailed.Inc()
			if wantsReply(msg) {
				reply(errorReply(err))
			}
			return
		}
		requestsHandled.Inc()
		if wantsReply(msg) {
			reply(resp)
		}
	}

	for {
		v, err := c.Read(context.Background())
		if err != nil {
			if comm.IsClosed(err) {
				log.Debugf("connection %s closed", c.PeerAddr())
			} else {
				log.Errorf("read from %s failed: %v", c.PeerAddr(), err)
			}
			break
		}

		msg, ok := v.(Message)
		if !ok {
			log.Errorf("dropping non-envelope message %T from %s", v, c.PeerAddr())
			continue
		}

		workerSemaphore <- struct{}{}
		wg.Add(1)
		go process(msg)
	}

	// Drain in-flight workers before releasing the comm.
	wg.Wait()
}

// dispatch routes one envelope to its op handler.
func (s *Server) dispatch(msg Message) (Message, error) {
	op := Op(msg)
	if op == "" {
		return nil, fmt.Errorf("message has no op")
	}
	h, ok := s.handlers.Load(op)
	if !ok {
		return nil, fmt.Errorf("unknown op %q", op)
	}

	ctx := context.Background()
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}
	return h(ctx, msg)
}
