// Package discovery resolves address ranges to individual hosts, probes
// reachability across a bounded worker pool, and enriches responsive hosts
// with reverse DNS, IPAM, and OS fingerprint data.
package discovery

import (
	"net/netip"
	"sort"
	"strings"
)

// maxTokenExpansion bounds how many addresses a single range token may
// expand to. Tokens beyond it are treated like any other invalid token
// and skipped; fixed worker pools cannot usefully chew through more.
const maxTokenExpansion = 1 << 16

// ParseRanges parses a comma-separated list of IPv4 targets into individual
// addresses. Supported forms:
//
//	CIDR:   10.0.1.0/24
//	Range:  10.0.5.1-10.0.5.100 or short form 10.0.5.1-100
//	Single: 10.0.5.50
//
// Parsing is best-effort: invalid tokens are skipped silently. The result
// preserves first-seen order with duplicates removed.
func ParseRanges(text string) []string {
	var ips []string

	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		switch {
		case strings.Contains(part, "/"):
			ips = append(ips, expandCIDR(part)...)
		case strings.Contains(part, "-"):
			ips = append(ips, expandRange(part)...)
		default:
			if addr, err := netip.ParseAddr(part); err == nil && addr.Is4() {
				ips = append(ips, addr.String())
			}
		}
	}

	return dedupe(ips)
}

// expandCIDR returns the host addresses of an IPv4 prefix. Network and
// broadcast addresses are excluded for prefixes of /30 and larger; /31 and
// /32 yield all their addresses.
func expandCIDR(token string) []string {
	prefix, err := netip.ParsePrefix(token)
	if err != nil || !prefix.Addr().Is4() {
		return nil
	}
	prefix = prefix.Masked()

	// Size math runs in uint64: a /0 shift and address arithmetic at the
	// top of the v4 space both wrap uint32.
	bits := prefix.Bits()
	size := uint64(1) << (32 - bits)
	if size > maxTokenExpansion {
		return nil
	}

	base := uint64(ipToUint(prefix.Addr()))
	first, last := base, base+size-1
	if bits <= 30 {
		first, last = base+1, base+size-2
	}

	out := make([]string, 0, last-first+1)
	for n := first; n <= last; n++ {
		out = append(out, uintToIP(uint32(n)).String())
	}
	return out
}

// expandRange returns the addresses of an inclusive range token. The end
// may be a bare final octet ("10.0.5.1-100").
func expandRange(token string) []string {
	idx := strings.LastIndex(token, "-")
	startStr := strings.TrimSpace(token[:idx])
	endStr := strings.TrimSpace(token[idx+1:])

	if !strings.Contains(endStr, ".") {
		dot := strings.LastIndex(startStr, ".")
		if dot < 0 {
			return nil
		}
		endStr = startStr[:dot+1] + endStr
	}

	start, err := netip.ParseAddr(startStr)
	if err != nil || !start.Is4() {
		return nil
	}
	end, err := netip.ParseAddr(endStr)
	if err != nil || !end.Is4() {
		return nil
	}

	// uint64 keeps the full-address-space range from wrapping the size
	// check and the loop bound.
	startN, endN := uint64(ipToUint(start)), uint64(ipToUint(end))
	if endN < startN || endN-startN+1 > maxTokenExpansion {
		return nil
	}

	out := make([]string, 0, endN-startN+1)
	for n := startN; n <= endN; n++ {
		out = append(out, uintToIP(uint32(n)).String())
	}
	return out
}

func ipToUint(addr netip.Addr) uint32 {
	b := addr.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func uintToIP(n uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
}

// sortByIP sorts addresses ascending by numeric value. Unparseable entries
// sort first; they only occur if callers hand in non-IP strings.
func sortByIP(ips []string) {
	sort.Slice(ips, func(i, j int) bool {
		a, errA := netip.ParseAddr(ips[i])
		b, errB := netip.ParseAddr(ips[j])
		if errA != nil || errB != nil {
			return errA != nil && errB == nil
		}
		return ipToUint(a) < ipToUint(b)
	})
}
