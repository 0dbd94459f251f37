// Package whoami discovers the public address by asking a recursive resolver
// which source address it sees, using the TXT/CHAOS "whoami.cloudflare" name.
package whoami

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/miekg/dns"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/publicip"
)

const (
	// QueryName is answered by Cloudflare resolvers with the querier's address.
	QueryName = "whoami.cloudflare."

	defaultTimeout = 2 * time.Second
)

// DefaultServers are the recursive resolvers queried when none are configured.
var DefaultServers = []string{"1.1.1.1:53", "1.0.0.1:53"}

func init() {
	publicip.Register("whoami", func(log logr.Logger, settings map[string]string) (publicip.Resolver, error) {
		return New(log, settings)
	})
}

// Resolver implements publicip.Resolver with a TXT/CHAOS query.
type Resolver struct {
	servers []string
	client  *dns.Client
	log     logr.Logger
}

// New creates a whoami resolver from the given settings map.
// Optional settings: servers (comma separated, default 1.1.1.1 and 1.0.0.1),
// timeout (default 2s), net ("udp" or "tcp", default udp).
func New(log logr.Logger, settings map[string]string) (*Resolver, error) {
	servers := DefaultServers
	if v := strings.TrimSpace(settings["servers"]); v != "" {
		servers = nil
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			servers = append(servers, withDefaultPort(s))
		}
		if len(servers) == 0 {
			return nil, fmt.Errorf("whoami: setting 'servers' lists no servers")
		}
	}

	timeout := defaultTimeout
	if v := settings["timeout"]; v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("whoami: invalid timeout %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("whoami: timeout must be positive, got %s", parsed)
		}
		timeout = parsed
	}

	network := "udp"
	switch v := settings["net"]; v {
	case "", "udp":
	case "tcp":
		network = v
	default:
		return nil, fmt.Errorf("whoami: invalid net %q (want udp or tcp)", v)
	}

	return &Resolver{
		servers: servers,
		client:  &dns.Client{Net: network, Timeout: timeout},
		log:     log,
	}, nil
}

// Servers returns the resolver addresses queried, in order.
func (r *Resolver) Servers() []string {
	return append([]string(nil), r.servers...)
}

// Resolve queries each server in turn and returns the first usable answer.
// A server that fails to answer or answers with an error code hands over to
// the next one; an answer that is present but unusable is returned as is.
func (r *Resolver) Resolve(ctx context.Context) (netip.Addr, error) {
	msg := newQuery()

	var lastErr error
	for _, server := range r.servers {
		resp, rtt, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = &publicip.ResolveError{Server: server, Err: err}
			if ctx.Err() != nil {
				return netip.Addr{}, lastErr
			}
			r.log.V(1).Info("whoami query failed, trying next server", "server", server, "error", err)
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = &publicip.ResolveError{Server: server, Err: fmt.Errorf("server answered %s", dns.RcodeToString[resp.Rcode])}
			r.log.V(1).Info("whoami query rejected, trying next server", "server", server, "rcode", dns.RcodeToString[resp.Rcode])
			continue
		}
		r.log.V(1).Info("whoami query answered", "server", server, "rtt", rtt, "answers", len(resp.Answer))

		addr, err := addressFromAnswer(resp.Answer)
		if err != nil {
			return netip.Addr{}, &publicip.ResolveError{Server: server, Err: err}
		}
		return addr, nil
	}

	if lastErr == nil {
		lastErr = &publicip.ResolveError{Err: errors.New("no servers configured")}
	}
	return netip.Addr{}, lastErr
}

func newQuery() *dns.Msg {
	msg := new(dns.Msg)
	msg.Id = dns.Id()
	msg.RecursionDesired = true
	msg.Question = []dns.Question{{
		Name:   QueryName,
		Qtype:  dns.TypeTXT,
		Qclass: dns.ClassCHAOS,
	}}
	return msg
}

// addressFromAnswer parses the first string of the first TXT record.
func addressFromAnswer(answer []dns.RR) (netip.Addr, error) {
	for _, rr := range answer {
		txt, ok := rr.(*dns.TXT)
		if !ok {
			continue
		}
		if len(txt.Txt) == 0 {
			return netip.Addr{}, publicip.ErrNoAnswer
		}
		return publicip.ParseIPv4(strings.TrimSpace(txt.Txt[0]))
	}
	return netip.Addr{}, publicip.ErrNoAnswer
}

func withDefaultPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), "53")
}
