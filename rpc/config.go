package rpc

import (
	"fmt"
	"strings"
	"time"

	"github.com/tkoeppen/taskwire/comm"
)

// ServerConfig configures an rpc server.
type ServerConfig struct {
	// ListenAddr is the address the server binds, e.g. "tcp://:8787".
	ListenAddr string

	// WorkersPerConn caps the number of requests processed concurrently
	// per connection. Values < 1 fall back to 1.
	WorkersPerConn int

	// Timeout bounds the handling of a single request, 0 disables it.
	Timeout time.Duration

	// Comm configures the comms of accepted connections.
	Comm comm.Options
}

// DefaultServerConfig returns the config used when a caller does not
// override it.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:     "tcp://:8787",
		WorkersPerConn: 16,
		Comm:           comm.DefaultOptions(),
	}
}

// String returns a formatted representation of the config.
func (c ServerConfig) String() string {
	var sb strings.Builder
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}
	sb.WriteString("RPC SERVER CONFIG\n")
	addField("Listen Addr", c.ListenAddr)
	addField("Workers Per Conn", fmt.Sprintf("%d", c.WorkersPerConn))
	addField("Timeout", c.Timeout.String())
	return sb.String()
}

// ClientConfig configures an rpc client.
type ClientConfig struct {
	// ConnectTimeout bounds each connection attempt; 0 selects
	// comm.DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// Retries is the number of send attempts before giving up. Values
	// < 1 fall back to 1.
	Retries int

	// Comm configures the comms the client dials with.
	Comm comm.Options
}

// DefaultClientConfig returns the config used when a caller does not
// override it.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Retries: 3,
		Comm:    comm.DefaultOptions(),
	}
}
