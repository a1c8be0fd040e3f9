package inproc

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tkoeppen/taskwire/comm"
)

// Manager coordinates in-process listeners and their addresses. A
// connector must find the listener behind an address to pair queues
// with it, so every live listener registers here. Construct isolated
// managers in tests with NewManager.
type Manager struct {
	listeners *xsync.MapOf[string, *listener]
	suffix    atomic.Uint64
	ip        string
	pid       int
}

// NewManager returns an empty manager bound to this process.
func NewManager() *Manager {
	return &Manager{
		listeners: xsync.NewMapOf[string, *listener](),
		ip:        comm.LocalIP(),
		pid:       os.Getpid(),
	}
}

var defaultManager = NewManager()

// DefaultManager returns the process-wide manager the "inproc" scheme
// registration uses.
func DefaultManager() *Manager {
	return defaultManager
}

// NewAddress mints a fresh location of the form "ip/pid/n".
func (m *Manager) NewAddress() string {
	return fmt.Sprintf("%s/%d/%d", m.ip, m.pid, m.suffix.Add(1))
}

// NewAddress returns a full new inproc address on the default manager.
func NewAddress() string {
	return "inproc://" + defaultManager.NewAddress()
}

func (m *Manager) addListener(addr string, l *listener) error {
	if _, loaded := m.listeners.LoadOrStore(addr, l); loaded {
		return fmt.Errorf("inproc: already listening on %q", addr)
	}
	return nil
}

func (m *Manager) removeListener(addr string) {
	m.listeners.Delete(addr)
}

// listenerFor resolves an address to its live listener. The address
// must belong to this process; a valid address with no listener is a
// transient condition (the connect facade retries it).
func (m *Manager) listenerFor(addr string) (*listener, error) {
	if err := m.validateAddress(addr); err != nil {
		return nil, err
	}
	l, ok := m.listeners.Load(addr)
	if !ok {
		return nil, fmt.Errorf("inproc: no endpoint for address %q", addr)
	}
	return l, nil
}

// validateAddress checks that an "ip/pid/n" location matches this
// process.
func (m *Manager) validateAddress(addr string) error {
	parts := strings.Split(addr, "/")
	if len(parts) != 3 {
		return &comm.InvalidAddressError{Addr: addr, Reason: "inproc location must be ip/pid/n"}
	}
	pid, err := strconv.Atoi(parts[1])
	if err != nil {
		return &comm.InvalidAddressError{Addr: addr, Reason: "non-numeric pid"}
	}
	if parts[0] != m.ip || pid != m.pid {
		return &comm.InvalidAddressError{
			Addr:   addr,
			Reason: fmt.Sprintf("does not match host %q or pid %d", m.ip, m.pid),
		}
	}
	return nil
}
