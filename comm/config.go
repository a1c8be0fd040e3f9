package comm

import (
	"fmt"
	"strings"
	"time"
)

// TCPOptions carries socket tuning applied to every established stream
// connection, dialed or accepted.
type TCPOptions struct {
	// NoDelay disables Nagle's algorithm.
	NoDelay bool

	// ReadBufferSize / WriteBufferSize set the socket buffers when > 0.
	ReadBufferSize  int
	WriteBufferSize int

	// KeepAlivePeriod enables TCP keep-alive when > 0.
	KeepAlivePeriod time.Duration

	// Linger sets SO_LINGER when >= 0.
	Linger int
}

// DefaultTCPOptions returns the tuning used when a caller does not
// override it.
func DefaultTCPOptions() TCPOptions {
	return TCPOptions{
		NoDelay: true,
		Linger:  -1,
	}
}

// String returns a formatted representation of the options.
func (o TCPOptions) String() string {
	var sb strings.Builder
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}
	sb.WriteString("TCP OPTIONS\n")
	addField("No Delay", fmt.Sprintf("%t", o.NoDelay))
	addField("Read Buffer", fmt.Sprintf("%d", o.ReadBufferSize))
	addField("Write Buffer", fmt.Sprintf("%d", o.WriteBufferSize))
	addField("Keep Alive", o.KeepAlivePeriod.String())
	addField("Linger", fmt.Sprintf("%d", o.Linger))
	return sb.String()
}
