// Package privacy masks principal IP addresses before they reach log lines.
// Audit records keep the full address; logs only need the network.
package privacy

import (
	"log/slog"
	"net/netip"
)

const (
	ipv4PrefixBits = 24
	ipv6PrefixBits = 48
)

// AnonymizeIP returns the network of ip: the /24 of an IPv4 address (IPv4
// mapped IPv6 included) or the /48 of an IPv6 address, e.g.
// "192.0.2.47" -> "192.0.2.0" and "2001:db8:85a3::7334" -> "2001:db8:85a3::".
// Empty input yields "unknown" and unparseable input "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")

	bits := ipv6PrefixBits
	if addr.Is4() {
		bits = ipv4PrefixBits
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// PrincipalIP is the log attribute for a principal's address.
func PrincipalIP(ip string) slog.Attr {
	return slog.String("principal_ip_prefix", AnonymizeIP(ip))
}
