// Package netutil has helpers for host:port addresses.
package netutil

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrMissingPort is returned by SplitHostPort for addresses without a port.
var ErrMissingPort = errors.New("missing port in address")

// SplitHostPort splits a host:port address into host and a non-zero port.
func SplitHostPort(addr string) (host string, port uint16, err error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		if isMissingPortErr(err) {
			return "", 0, fmt.Errorf("%q: %w", addr, ErrMissingPort)
		}
		return "", 0, err
	}
	p, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || p == 0 {
		return "", 0, fmt.Errorf("invalid port %q in address %q", portStr, addr)
	}
	return host, uint16(p), nil
}

// Host returns the host of addr, or the whole address if it has no port.
func Host(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func isMissingPortErr(err error) bool {
	var addrErr *net.AddrError
	return errors.As(err, &addrErr) && addrErr.Err == "missing port in address"
}
