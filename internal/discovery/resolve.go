package discovery

import (
	"context"
	"net"
	"net/netip"
	"strings"
)

// LookupHostFunc resolves a hostname to its addresses.
type LookupHostFunc func(ctx context.Context, host string) ([]string, error)

// ResolveTargets expands a comma-separated target string that may mix
// address ranges and hostnames. Address tokens go through ParseRanges;
// hostname tokens are resolved as given and then with each search zone
// appended, first answer wins. The returned resolved map records the
// name each resolved address came from, and unresolved lists hostname
// tokens no lookup could answer.
func ResolveTargets(ctx context.Context, text string, lookup LookupHostFunc, zones []string) (ips []string, resolved map[string]string, unresolved []string) {
	if lookup == nil {
		lookup = net.DefaultResolver.LookupHost
	}
	resolved = make(map[string]string)

	var addrTokens []string
	for _, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if isAddressToken(token) {
			addrTokens = append(addrTokens, token)
			continue
		}

		ip, ok := resolveHostname(ctx, lookup, token, zones)
		if !ok {
			unresolved = append(unresolved, token)
			continue
		}
		if _, dup := resolved[ip]; !dup {
			resolved[ip] = token
			ips = append(ips, ip)
		}
	}

	for _, ip := range ParseRanges(strings.Join(addrTokens, ",")) {
		if _, dup := resolved[ip]; dup {
			continue
		}
		resolved[ip] = ""
		ips = append(ips, ip)
	}
	return ips, resolved, unresolved
}

// isAddressToken reports whether a token looks like an address form rather
// than a hostname. Range and CIDR tokens must start with a digit; a bare
// token is an address only if it parses as one.
func isAddressToken(token string) bool {
	if token == "" {
		return false
	}
	if strings.Contains(token, "/") || strings.Contains(token, "-") {
		return token[0] >= '0' && token[0] <= '9'
	}
	_, err := netip.ParseAddr(token)
	return err == nil
}

func resolveHostname(ctx context.Context, lookup LookupHostFunc, name string, zones []string) (string, bool) {
	candidates := []string{name}
	if !strings.Contains(name, ".") {
		for _, zone := range zones {
			zone = strings.Trim(zone, ".")
			if zone != "" {
				candidates = append(candidates, name+"."+zone)
			}
		}
	}

	for _, candidate := range candidates {
		addrs, err := lookup(ctx, candidate)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if addr, err := netip.ParseAddr(a); err == nil && addr.Is4() {
				return addr.String(), true
			}
		}
	}
	return "", false
}
