package tcp

import (
	"context"
	"net"

	"github.com/VictoriaMetrics/metrics"

	"github.com/tkoeppen/taskwire/comm"
)

var connsDialed = metrics.GetOrCreateCounter(`taskwire_tcp_connections_total{kind="dialed"}`)

const prefix = "tcp://"

type connector struct{}

func (connector) Connect(ctx context.Context, loc string, opts comm.Options) (comm.Comm, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", loc)
	if err != nil {
		return nil, err
	}
	if err := upgradeConnection(conn, opts.TCP); err != nil {
		conn.Close()
		return nil, err
	}
	connsDialed.Inc()
	local := prefix + conn.LocalAddr().String()
	return newComm(conn, local, prefix+loc, opts), nil
}

// upgradeConnection applies socket tuning to an established connection.
// Non-TCP connections (tests may inject pipes) pass through untouched.
func upgradeConnection(conn net.Conn, opts comm.TCPOptions) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tc.SetNoDelay(opts.NoDelay); err != nil {
		return err
	}
	if opts.WriteBufferSize > 0 {
		if err := tc.SetWriteBuffer(opts.WriteBufferSize); err != nil {
			return err
		}
	}
	if opts.ReadBufferSize > 0 {
		if err := tc.SetReadBuffer(opts.ReadBufferSize); err != nil {
			return err
		}
	}
	if opts.KeepAlivePeriod > 0 {
		if err := tc.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tc.SetKeepAlivePeriod(opts.KeepAlivePeriod); err != nil {
			return err
		}
	}
	if opts.Linger >= 0 {
		if err := tc.SetLinger(opts.Linger); err != nil {
			return err
		}
	}
	return nil
}
