// Package resolve looks up the daemon host against an explicit DNS server,
// for routers whose names the system resolver does not know.
package resolve

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

const defaultTimeout = 5 * time.Second

// Resolver queries one DNS server for A records.
type Resolver struct {
	server string
	client *dns.Client
}

// New returns a Resolver for server, given as host:port.
func New(server string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Resolver{
		server: server,
		client: &dns.Client{Net: "udp", Timeout: timeout},
	}
}

// Server returns the DNS server address.
func (r *Resolver) Server() string {
	return r.server
}

// LookupHost returns the first IPv4 address of host. IP literals are
// returned unchanged. Failures are *net.DNSError values.
func (r *Resolver) LookupHost(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return "", &net.DNSError{Err: err.Error(), Name: host, Server: r.server, IsTimeout: isTimeout(err)}
	}
	if resp.Rcode != dns.RcodeSuccess {
		return "", &net.DNSError{
			Err:        fmt.Sprintf("server returned %s", dns.RcodeToString[resp.Rcode]),
			Name:       host,
			Server:     r.server,
			IsNotFound: resp.Rcode == dns.RcodeNameError,
		}
	}

	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			return a.A.String(), nil
		}
	}
	return "", &net.DNSError{Err: "no A record", Name: host, Server: r.server, IsNotFound: true}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
