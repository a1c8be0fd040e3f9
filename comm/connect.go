package comm

import (
	"context"
	"errors"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("comm")

// DefaultConnectTimeout bounds Connect when the caller passes no
// timeout.
const DefaultConnectTimeout = 3 * time.Second

// connectRetryInterval is the pause between connect attempts while the
// deadline has not elapsed.
const connectRetryInterval = 10 * time.Millisecond

// Connect establishes a comm to the given address, retrying transient
// failures with bounded polling until the timeout elapses. Address
// errors and unknown schemes fail immediately; everything else is
// considered transient within the deadline. On expiry the last failure
// is wrapped in a ConnectTimeoutError.
func (r *Registry) Connect(ctx context.Context, addr string, timeout time.Duration, opts Options) (Comm, error) {
	scheme, loc, err := ParseAddress(addr)
	if err != nil {
		return nil, err
	}
	backend, err := r.Backend(scheme, addr)
	if err != nil {
		return nil, err
	}
	connector := backend.Connector()

	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	deadline := time.Now().Add(timeout)
	attemptCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var lastErr error
	for {
		c, err := connector.Connect(attemptCtx, loc, opts)
		if err == nil {
			return c, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ctxErr
		}
		if !time.Now().Before(deadline) {
			return nil, &ConnectTimeoutError{Addr: addr, Timeout: timeout, Err: lastErr}
		}

		log.Debugf("connect to %s failed (%v), retrying", addr, err)
		select {
		case <-time.After(connectRetryInterval):
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, &ConnectTimeoutError{Addr: addr, Timeout: timeout, Err: lastErr}
			}
			return nil, ctx.Err()
		}
	}
}

// Listen constructs and starts the scheme's listener on the given
// address, invoking handler with a live Comm for every accepted
// connection.
func (r *Registry) Listen(addr string, handler Handler, opts Options) (Listener, error) {
	scheme, loc, err := ParseAddress(addr)
	if err != nil {
		return nil, err
	}
	backend, err := r.Backend(scheme, addr)
	if err != nil {
		return nil, err
	}
	l, err := backend.NewListener(loc, handler, opts)
	if err != nil {
		return nil, err
	}
	if err := l.Start(); err != nil {
		return nil, err
	}
	return l, nil
}

// Connect dials through the default registry.
func Connect(ctx context.Context, addr string, timeout time.Duration, opts Options) (Comm, error) {
	return defaultRegistry.Connect(ctx, addr, timeout, opts)
}

// Listen binds through the default registry.
func Listen(addr string, handler Handler, opts Options) (Listener, error) {
	return defaultRegistry.Listen(addr, handler, opts)
}
