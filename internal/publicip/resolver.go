// Package publicip discovers the address the outside world sees for this host.
package publicip

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
)

var (
	// ErrNoAnswer is returned when a lookup produced no usable answer.
	ErrNoAnswer = errors.New("no address in answer")
	// ErrNotIPv4 is returned when the discovered address is not IPv4.
	ErrNotIPv4 = errors.New("address is not IPv4")
)

// Resolver returns the current public IPv4 address.
type Resolver interface {
	Resolve(ctx context.Context) (netip.Addr, error)
}

// ResolveError reports a failed public address lookup.
type ResolveError struct {
	Server string // empty when no remote server was involved
	Err    error
}

func (e *ResolveError) Error() string {
	if e.Server == "" {
		return fmt.Sprintf("resolving public address: %v", e.Err)
	}
	return fmt.Sprintf("resolving public address via %s: %v", e.Server, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// ParseIPv4 parses s as an IPv4 literal. IPv6 literals, including IPv4-mapped
// ones, are rejected with ErrNotIPv4.
func ParseIPv4(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, err
	}
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%s: %w", s, ErrNotIPv4)
	}
	return addr, nil
}
