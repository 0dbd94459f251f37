// Package static provides a resolver that always reports a configured address.
package static

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/publicip"
)

func init() {
	publicip.Register("static", func(log logr.Logger, settings map[string]string) (publicip.Resolver, error) {
		return New(log, settings)
	})
}

// Resolver implements publicip.Resolver for a fixed address.
type Resolver struct {
	addr netip.Addr
	log  logr.Logger
}

// New creates a static resolver from the given settings map.
// Required settings: address.
func New(log logr.Logger, settings map[string]string) (*Resolver, error) {
	raw := settings["address"]
	if raw == "" {
		return nil, fmt.Errorf("static: missing required setting 'address'")
	}
	addr, err := publicip.ParseIPv4(raw)
	if err != nil {
		return nil, fmt.Errorf("static: invalid address: %w", err)
	}
	return &Resolver{addr: addr, log: log}, nil
}

// Resolve returns the configured address.
func (r *Resolver) Resolve(context.Context) (netip.Addr, error) {
	r.log.V(1).Info("using static address", "ip", r.addr)
	return r.addr, nil
}
