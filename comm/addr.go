package comm

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultScheme applies when an address omits the "scheme://" prefix.
const DefaultScheme = "tcp"

const schemeSep = "://"

// ParseAddress splits an address into scheme and transport-specific
// location. The split happens on the last occurrence of "://"; when the
// separator is absent the default scheme is assumed. The location is not
// validated here, its syntax belongs to the transport.
func ParseAddress(addr string) (scheme, loc string, err error) {
	if addr == "" {
		return "", "", &InvalidAddressError{Addr: addr, Reason: "empty address"}
	}
	idx := strings.LastIndex(addr, schemeSep)
	if idx < 0 {
		return DefaultScheme, addr, nil
	}
	scheme = addr[:idx]
	if scheme == "" {
		return "", "", &InvalidAddressError{Addr: addr, Reason: "empty scheme"}
	}
	return scheme, addr[idx+len(schemeSep):], nil
}

// UnparseAddress is the inverse of ParseAddress.
func UnparseAddress(scheme, loc string) string {
	return scheme + schemeSep + loc
}

// NormalizeAddress canonicalizes an address, making the default scheme
// explicit. Idempotent: normalizing a normalized address is a no-op.
func NormalizeAddress(addr string) (string, error) {
	scheme, loc, err := ParseAddress(addr)
	if err != nil {
		return "", err
	}
	return UnparseAddress(scheme, loc), nil
}

// ParseHostPort splits a "host:port" location, tolerating a missing
// port (defaultPort applies) and bracketed IPv6 literals.
func ParseHostPort(loc string, defaultPort int) (host string, port int, err error) {
	host, portStr, splitErr := net.SplitHostPort(loc)
	if splitErr != nil {
		// No port present. Reject anything that still looks malformed.
		if strings.Count(loc, ":") > 0 && !strings.HasPrefix(loc, "[") {
			return "", 0, &InvalidAddressError{Addr: loc, Reason: splitErr.Error()}
		}
		return strings.Trim(loc, "[]"), defaultPort, nil
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, &InvalidAddressError{Addr: loc, Reason: fmt.Sprintf("bad port %q", portStr)}
	}
	return host, port, nil
}

// UnparseHostPort formats a host and port back into a location,
// bracketing IPv6 hosts.
func UnparseHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ResolveAddress replaces a symbolic host in a host:port location with
// its resolved IP. Locations that are already numeric pass through.
func ResolveAddress(loc string) (string, error) {
	host, port, err := ParseHostPort(loc, 0)
	if err != nil {
		return "", err
	}
	if ip := net.ParseIP(host); ip != nil {
		return UnparseHostPort(host, port), nil
	}
	addr, err := net.ResolveIPAddr("ip", host)
	if err != nil {
		return "", fmt.Errorf("resolving host %q: %w", host, err)
	}
	return UnparseHostPort(addr.IP.String(), port), nil
}

// LocalIP returns an IP other hosts can reach this process under. Falls
// back to the IPv4 loopback when no route is available.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}
