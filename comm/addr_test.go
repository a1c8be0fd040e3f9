package comm

import (
	"errors"
	"testing"
)

// TestParseAddress tests scheme/location splitting including the
// default-scheme and error cases
func TestParseAddress(t *testing.T) {
	tests := map[string]struct {
		addr       string
		wantScheme string
		wantLoc    string
		wantErr    bool
	}{
		"tcp address":        {"tcp://127.0.0.1:8787", "tcp", "127.0.0.1:8787", false},
		"inproc address":     {"inproc://10.0.0.1/1234/1", "inproc", "10.0.0.1/1234/1", false},
		"no scheme":          {"192.168.1.100:8787", "tcp", "192.168.1.100:8787", false},
		"separator in path":  {"ws://host:80/a://b", "ws://host:80/a", "b", false},
		"empty address":      {"", "", "", true},
		"empty scheme":       {"://host:1", "", "", true},
		"scheme only":        {"tcp://", "tcp", "", false},
		"ipv6 with brackets": {"tcp://[::1]:8787", "tcp", "[::1]:8787", false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			scheme, loc, err := ParseAddress(tc.addr)
			if tc.wantErr {
				var iae *InvalidAddressError
				if !errors.As(err, &iae) {
					t.Fatalf("Expected InvalidAddressError for %q, got %v", tc.addr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for %q: %v", tc.addr, err)
			}
			if scheme != tc.wantScheme || loc != tc.wantLoc {
				t.Errorf("ParseAddress(%q) = (%q, %q), want (%q, %q)",
					tc.addr, scheme, loc, tc.wantScheme, tc.wantLoc)
			}
		})
	}
}

// TestNormalizeAddress tests that normalization is idempotent
func TestNormalizeAddress(t *testing.T) {
	normalized, err := NormalizeAddress("10.1.2.3:4567")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if normalized != "tcp://10.1.2.3:4567" {
		t.Errorf("Wrong normalization: %q", normalized)
	}

	again, err := NormalizeAddress(normalized)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if again != normalized {
		t.Errorf("Normalization is not idempotent: %q != %q", again, normalized)
	}
}

// TestParseHostPort tests location splitting with default ports
func TestParseHostPort(t *testing.T) {
	tests := map[string]struct {
		loc      string
		defPort  int
		wantHost string
		wantPort int
		wantErr  bool
	}{
		"host and port":     {"127.0.0.1:8787", 0, "127.0.0.1", 8787, false},
		"missing port":      {"127.0.0.1", 9000, "127.0.0.1", 9000, false},
		"hostname":          {"worker-3:100", 0, "worker-3", 100, false},
		"ipv6":              {"[::1]:80", 0, "::1", 80, false},
		"ipv6 without port": {"[::1]", 9000, "::1", 9000, false},
		"bad port":          {"host:notaport", 0, "", 0, true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			host, port, err := ParseHostPort(tc.loc, tc.defPort)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q", tc.loc)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for %q: %v", tc.loc, err)
			}
			if host != tc.wantHost || port != tc.wantPort {
				t.Errorf("ParseHostPort(%q) = (%q, %d), want (%q, %d)",
					tc.loc, host, port, tc.wantHost, tc.wantPort)
			}
		})
	}
}

// TestUnparseHostPort tests formatting, in particular IPv6 bracketing
func TestUnparseHostPort(t *testing.T) {
	if got := UnparseHostPort("10.0.0.1", 80); got != "10.0.0.1:80" {
		t.Errorf("Wrong format: %q", got)
	}
	if got := UnparseHostPort("::1", 80); got != "[::1]:80" {
		t.Errorf("IPv6 host should be bracketed: %q", got)
	}
}
