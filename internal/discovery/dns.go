package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// Resolver performs reverse lookups, optionally against a specific DNS
// server instead of the system configuration.
type Resolver struct {
	resolver *net.Resolver
}

// NewResolver returns a Resolver. A non-empty server (host or host:port)
// pins all queries to that DNS server.
func NewResolver(server string) *Resolver {
	if server == "" {
		return &Resolver{resolver: net.DefaultResolver}
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}

	return &Resolver{resolver: &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: 3 * time.Second}
			return d.DialContext(ctx, network, server)
		},
	}}
}

// LookupHost resolves a hostname to its addresses.
func (r *Resolver) LookupHost(ctx context.Context, name string) ([]string, error) {
	return r.resolver.LookupHost(ctx, name)
}

// ReverseLookup resolves ip to its first PTR name, without the trailing dot.
// A NXDOMAIN answer is returned as an error like any other lookup failure.
func (r *Resolver) ReverseLookup(ctx context.Context, ip string) (string, error) {
	names, err := r.resolver.LookupAddr(ctx, ip)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no PTR record for %s", ip)
	}
	return strings.TrimSuffix(names[0], "."), nil
}
